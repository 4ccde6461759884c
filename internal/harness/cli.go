package harness

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/libra/gpu"
)

// Exit codes of Main. A run with mismatches exits with the mismatch count,
// clamped so it never collides with ExitFatal.
const (
	ExitPassed = 0
	ExitFatal  = 255

	maxExitErrors = ExitFatal - 1
)

const usage = "Usage: [-n size] [-h: help]"

// Main parses args, runs variant v on the backend chosen by gpu.Select and
// returns the process exit code.
func Main(args []string, v Variant, stdout, stderr io.Writer) int {
	cfg := DefaultConfig(v)

	fs := flag.NewFlagSet("libra-"+v.String(), flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprintln(stdout, usage) }
	fs.IntVar(&cfg.N, "n", cfg.N, "workload size (number of complex samples)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitPassed
		}
		return ExitFatal
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return ExitFatal
	}

	log := newLogger(stdout)
	log.Infof("Workload size=%d", cfg.N)

	backend := gpu.Select()
	log.WithField("backend", backend.Info().Name).Debug("backend selected")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := Run(ctx, backend, v, cfg, log)
	if err != nil {
		entry := log.WithError(err)
		var ce *gpu.CallError
		if errors.As(err, &ce) {
			entry = entry.WithFields(logrus.Fields{"call": ce.Call, "status": int32(ce.Status)})
		}
		entry.Error("run aborted")
		return ExitFatal
	}

	return min(rep.Errors, maxExitErrors)
}

func newLogger(w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetLevel(logrus.InfoLevel)
	log.SetOutput(w)
	return log
}
