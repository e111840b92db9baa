// tc-tmap — отображение счётчика сэмплов устройства во время хоста.
//
// Использование:
//
//	tc-tmap scan [-v]                      — список подключённых устройств
//	tc-tmap run -config tc-tmap.yml        — цикл оценки отображения (источник → фильтр → история)
//	tc-tmap cal seal body.yml out.bin      — запечатать калибровку
//	tc-tmap cal verify cal.bin             — проверить калибровку
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shiwa/timecard-mini/tc-tmap/internal/config"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/devscan"
	"github.com/shiwa/timecard-mini/tc-tmap/internal/logger"
)

// listPorts — перечисление портов; nil — системный enumerator
var listPorts devscan.Lister

type options struct {
	configPath string
	quiet      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "tc-tmap",
		Short: "Counter to host time mapping for streaming instruments",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Quiet = opts.quiet
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "путь к YAML конфигу (по умолчанию tc-tmap.yml)")
	root.PersistentFlags().BoolVar(&opts.quiet, "quiet", false, "меньше вывода")
	root.AddCommand(newScanCmd(), newRunCmd(opts), newCalCmd())
	return root
}

// loadConfig читает конфиг; отсутствие файла по умолчанию — не ошибка.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = "tc-tmap.yml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && !explicit {
		return config.Default(), nil
	}
	return config.Load(path)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
