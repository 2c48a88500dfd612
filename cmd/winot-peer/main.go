package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/golang/glog"

	fx "github.com/robotalks/winot.go/pkg/framework"
	"github.com/robotalks/winot.go/pkg/peer"
	"github.com/robotalks/winot.go/pkg/peer/mqtt"
)

var (
	configFile string
	listenURL  string
	redisAddr  string
	mqttURL    string
)

func init() {
	flag.StringVar(&configFile, "config", configFile, "Config file (JSON with comments)")
	flag.StringVar(&listenURL, "listen", listenURL, "Endpoint URL to serve, overrides config")
	flag.StringVar(&redisAddr, "redis", redisAddr, "Redis address, overrides config")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL to mirror writes, overrides config")
}

func main() {
	flag.Parse()

	cfg, err := peer.LoadConfig(configFile)
	if err != nil {
		log.Fatalln(err)
	}
	if listenURL != "" {
		cfg.Listen = []string{listenURL}
	}
	if redisAddr != "" {
		cfg.RedisAddr = redisAddr
	}
	if mqttURL != "" {
		cfg.MQTTURL = mqttURL
	}

	module := cfg.NewModule()
	runner := fx.NewRunner().HandleSignals()
	if cfg.MQTTURL != "" {
		pub, err := mqtt.NewPublisher(cfg.MQTTURL)
		if err != nil {
			log.Fatalln(err)
		}
		module.Notifier = pub
		runner.Go(pub)
	}
	for _, endpoint := range cfg.Listen {
		l, err := peer.NewListener(module, endpoint)
		if err != nil {
			log.Fatalln(err)
		}
		runner.Go(l)
	}
	glog.Infof("peer module emulator, ip %s", cfg.IP)
	if err = runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
