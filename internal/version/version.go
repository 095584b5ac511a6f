// Package version хранит данные сборки, заданные через -ldflags.
package version

import "fmt"

// go build -ldflags "-X github.com/vladislavdragonenkov/orderhub/internal/version.version=v1.2.0"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GetVersion возвращает версию сборки; её же отдаёт /healthz.
func GetVersion() string { return version }

// String описывает сборку одной строкой для стартового лога.
func String() string {
	return fmt.Sprintf("orderhub %s (commit %s, built %s)", version, commit, date)
}
