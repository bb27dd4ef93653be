package api

import (
	"net"
	"net/http"
	"sort"
	"strconv"

	"github.com/drillkit/drill/internal/config"
)

type storagePlugin struct {
	Name   string              `json:"name"`
	Config storagePluginConfig `json:"config"`
}

type storagePluginConfig struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

type drillbit struct {
	Address     string `json:"address"`
	HTTPPort    string `json:"httpPort"`
	UserPort    string `json:"userPort"`
	ControlPort string `json:"controlPort"`
	DataPort    string `json:"dataPort"`
	Version     string `json:"version"`
	State       string `json:"state"`
	Current     bool   `json:"current"`
}

type clusterInfo struct {
	Drillbits             []drillbit `json:"drillbits"`
	CurrentVersion        string     `json:"currentVersion"`
	MismatchedVersions    []string   `json:"mismatchedVersions"`
	UserEncryptionEnabled bool       `json:"userEncryptionEnabled"`
	AuthEnabled           bool       `json:"authEnabled"`
}

type option struct {
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	Value            any    `json:"value"`
	OptionScope      string `json:"optionScope"`
	AccessibleScopes string `json:"accessibleScopes"`
}

func handleStorage(deps Dependencies, w http.ResponseWriter) {
	plugins := []storagePlugin{
		{Name: "cp", Config: storagePluginConfig{Type: "file", Enabled: true}},
	}
	if deps.QueryEngine != nil {
		for _, plugin := range deps.QueryEngine.Plugins() {
			plugins = append(plugins, storagePlugin{
				Name:   plugin.Name,
				Config: storagePluginConfig{Type: plugin.Type, Enabled: plugin.Enabled},
			})
		}
	}
	writeJSON(w, http.StatusOK, plugins)
}

func handleCluster(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	state := "ONLINE"
	if err := pingEngine(r.Context(), deps); err != nil {
		state = "OFFLINE"
	}
	writeJSON(w, http.StatusOK, clusterInfo{
		Drillbits: []drillbit{{
			Address:     deps.Hostname,
			HTTPPort:    httpPort(cfg.Sandbox.Address),
			UserPort:    "31010",
			ControlPort: "31011",
			DataPort:    "31012",
			Version:     cfg.Sandbox.Version,
			State:       state,
			Current:     true,
		}},
		CurrentVersion:     cfg.Sandbox.Version,
		MismatchedVersions: []string{},
	})
}

func sandboxOptions(cfg config.Config) []option {
	options := []option{
		{Name: "exec.query.max_rows", Kind: "LONG", Value: cfg.Sandbox.RowLimit},
		{Name: "exec.errors.verbose", Kind: "BOOLEAN", Value: false},
		{Name: "sandbox.backend", Kind: "STRING", Value: cfg.Sandbox.Backend},
		{Name: "sandbox.profiles.max_kept", Kind: "LONG", Value: cfg.Sandbox.ProfileLimit},
	}
	for i := range options {
		options[i].OptionScope = "SYSTEM"
		options[i].AccessibleScopes = "ALL"
	}
	sort.Slice(options, func(i, j int) bool { return options[i].Name < options[j].Name })
	return options
}

func httpPort(address string) string {
	_, port, err := net.SplitHostPort(address)
	if err != nil || port == "" {
		return "8047"
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "8047"
	}
	return port
}
