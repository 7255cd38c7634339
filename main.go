package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"os/user"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/MixinNetwork/mixin/logger"
	"github.com/MixinNetwork/nfm/machine"
	"github.com/MixinNetwork/nfm/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bp := flag.String("d", "~/.mixin/nfm/data", "database directory path")
	cp := flag.String("c", "~/.mixin/nfm/config.toml", "configuration file path")
	flag.Parse()

	conf, err := machine.Setup(expandHome(*cp))
	if err != nil {
		panic(err)
	}

	db, err := store.OpenBadger(ctx, expandHome(*bp))
	if err != nil {
		panic(err)
	}
	defer db.Close()

	m, err := machine.Build(ctx, db, conf)
	if err != nil {
		panic(err)
	}

	if conf.Metrics.Listen != "" {
		err = m.Metrics().Register(prometheus.DefaultRegisterer)
		if err != nil {
			panic(err)
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			err := http.ListenAndServe(conf.Metrics.Listen, mux)
			logger.Printf("http.ListenAndServe(%s) => %v\n", conf.Metrics.Listen, err)
		}()
	}

	m.Run(ctx)
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	usr, err := user.Current()
	if err != nil {
		panic(err)
	}
	return filepath.Join(usr.HomeDir, p[2:])
}
