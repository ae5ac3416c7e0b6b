package orchestrator

import (
	"strings"
	"testing"
)

func TestRenderMainUnit(t *testing.T) {
	unit := RenderMainUnit("app.service", "appsvc", "/opt/app", "0.0.0.0", 8000)

	if unit.Name != "app.service" {
		t.Errorf("unexpected name: %s", unit.Name)
	}

	def := string(unit.Definition)
	for _, want := range []string{
		"User=appsvc",
		"WorkingDirectory=/opt/app",
		"Environment=HOST=0.0.0.0",
		"Environment=PORT=8000",
		"--host 0.0.0.0 --port 8000",
		"Restart=on-failure",
	} {
		if !strings.Contains(def, want) {
			t.Errorf("main unit missing %q:\n%s", want, def)
		}
	}
}

func TestRenderBootstrapUnit(t *testing.T) {
	unit := RenderBootstrapUnit("app-bootstrap.service", "/usr/local/bin/bringup", "/etc/bringup/config.yaml")

	def := string(unit.Definition)
	for _, want := range []string{
		"Type=oneshot",
		"RemainAfterExit=yes",
		"ExecStart=/usr/local/bin/bringup bootstrap --config /etc/bringup/config.yaml",
	} {
		if !strings.Contains(def, want) {
			t.Errorf("bootstrap unit missing %q:\n%s", want, def)
		}
	}
}
