package orchestrator

import "fmt"

// UnitFile is an installable service-unit definition. The orchestrator
// treats the content as opaque.
type UnitFile struct {
	Name       string
	Definition []byte
}

// RenderMainUnit produces the systemd unit for the long-running main
// service. The service process itself owns steady-state health; the unit
// only encodes how to launch it.
func RenderMainUnit(name, user, appDir, host string, port int) UnitFile {
	def := fmt.Sprintf(`[Unit]
Description=Application service
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User=%s
WorkingDirectory=%s
Environment=HOST=%s
Environment=PORT=%d
ExecStart=%s/.venv/bin/python -m uvicorn main:app --host %s --port %d
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`, user, appDir, host, port, appDir, host, port)

	return UnitFile{Name: name, Definition: []byte(def)}
}

// RenderBootstrapUnit produces the oneshot unit that runs the dependency
// bootstrap phase. RemainAfterExit keeps the unit reported active after a
// successful run, which is what the orchestrator's state poll keys on.
func RenderBootstrapUnit(name, execPath, configPath string) UnitFile {
	def := fmt.Sprintf(`[Unit]
Description=Application dependency bootstrap
After=network-online.target
Wants=network-online.target

[Service]
Type=oneshot
RemainAfterExit=yes
ExecStart=%s bootstrap --config %s

[Install]
WantedBy=multi-user.target
`, execPath, configPath)

	return UnitFile{Name: name, Definition: []byte(def)}
}
