// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 j9brown

package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func withConfig(t *testing.T, contents string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pe653.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })
}

func TestGatewayParams_ArgsOnly(t *testing.T) {
	nodeID, mqttURL, apiTopic, err := gatewayParams([]string{"2", "tcp://broker:1883", "zwave/api"})
	if err != nil {
		t.Fatal(err)
	}
	if nodeID != 2 || mqttURL != "tcp://broker:1883" || apiTopic != "zwave/api" {
		t.Errorf("got %d %q %q", nodeID, mqttURL, apiTopic)
	}
}

func TestGatewayParams_ConfigDefaults(t *testing.T) {
	withConfig(t, "nodeId: 4\nmqttUrl: tcp://pool:1883\napiTopic: zwave/api\n")

	nodeID, mqttURL, apiTopic, err := gatewayParams(nil)
	if err != nil {
		t.Fatal(err)
	}
	if nodeID != 4 || mqttURL != "tcp://pool:1883" || apiTopic != "zwave/api" {
		t.Errorf("got %d %q %q", nodeID, mqttURL, apiTopic)
	}
}

func TestGatewayParams_ArgsOverrideConfig(t *testing.T) {
	withConfig(t, "nodeId: 4\nmqttUrl: tcp://pool:1883\napiTopic: zwave/api\n")

	nodeID, mqttURL, apiTopic, err := gatewayParams([]string{"9"})
	if err != nil {
		t.Fatal(err)
	}
	if nodeID != 9 || mqttURL != "tcp://pool:1883" || apiTopic != "zwave/api" {
		t.Errorf("got %d %q %q", nodeID, mqttURL, apiTopic)
	}
}

func TestGatewayParams_Missing(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "nothing"},
		{name: "no broker", args: []string{"2"}},
		{name: "no topic", args: []string{"2", "tcp://broker:1883"}},
		{name: "bad node id", args: []string{"two", "tcp://broker:1883", "zwave/api"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := gatewayParams(tt.args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
