package main

import (
	"context"
	"flag"
	"log"
	"os"

	fx "github.com/robotalks/winot.go/pkg/framework"
	"github.com/robotalks/winot.go/pkg/peer/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/winot/"
)

func init() {
	if val := os.Getenv("WINOT_PEER_MQTT"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	token := q.Connect()
	if token.Wait(); token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	q.Watch(func(ev mqtt.Event) {
		switch {
		case ev.TreeDeleted:
			log.Printf("tree %q deleted", ev.Tree)
		case !ev.Value.IsValid():
			log.Printf("%s deleted", ev.Key)
		default:
			log.Printf("%s = %s (%s)", ev.Key, ev.Value, ev.Value.Kind())
		}
	})

	err = fx.NewRunner().HandleSignals().Go(fx.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})).Wait()
	if err != nil {
		log.Fatalln(err)
	}
}
