package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/etnz/taxlot/config"
	"github.com/rs/zerolog"
)

// Environment variables passed to extensions.
const (
	EnvBook     = "TLX_BOOK"
	EnvPrices   = "TLX_PRICES"
	EnvCurrency = "TLX_CURRENCY"
	EnvLogLevel = "TLX_LOG_LEVEL"
)

// RunExtension attempts to find and execute an external tlx-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
//
// The extension receives the resolved configuration in its environment, so
// it reads the same book and prices as tlx would.
func RunExtension(subcommand string, args []string) (bool, int) {
	externalCmdName := "tlx-" + subcommand

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false, 0
	}
	log := newLogger(cfg)

	lp, err := exec.LookPath(externalCmdName)
	if err != nil {
		log.Debug().Err(err).Str("extension", externalCmdName).Msg("extension not found in PATH")
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), extensionEnv(cfg)...)

	log.Debug().Str("extension", lp).Strs("args", args).Msg("running extension")
	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", externalCmdName, err)
		return true, 1
	}
	return true, 0
}

// extensionEnv returns the environment describing cfg.
func extensionEnv(cfg *config.Config) []string {
	level := cfg.Logging.Level
	if level == "" {
		level = zerolog.LevelInfoValue
	}
	return []string{
		EnvBook + "=" + cfg.Book,
		EnvPrices + "=" + cfg.Prices.Path,
		EnvCurrency + "=" + cfg.Currency,
		EnvLogLevel + "=" + level,
	}
}
