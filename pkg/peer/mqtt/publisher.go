package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/winot.go/pkg/bridge"
	"github.com/robotalks/winot.go/pkg/framework"
)

// Topics under the queue prefix.
const (
	ValuesTopic      = "values/"
	TreeDeletedTopic = "events/tree-deleted"
)

// Publisher mirrors emulator writes as retained messages:
// a set publishes the JSON value to values/<key>, a delete clears it.
type Publisher struct {
	Queue *Queue
}

// NewPublisher creates a Publisher from a broker URL.
func NewPublisher(brokerURL string) (*Publisher, error) {
	q, err := NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Publisher{Queue: q}, nil
}

// Name implements framework.Named.
func (p *Publisher) Name() string {
	return "mqtt"
}

// Run implements framework.Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	token := p.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	return framework.RunWithContextCloser(ctx, p.Queue, func() error {
		<-ctx.Done()
		return ctx.Err()
	})
}

// ValueSet implements peer.Notifier.
func (p *Publisher) ValueSet(key string, v bridge.Value) {
	topic, payload, err := valueMessage(key, v)
	if err != nil {
		glog.Warningf("mqtt publish %s: %v", key, err)
		return
	}
	p.Queue.PubWith(topic, payload, 1, true)
}

// KeyDeleted implements peer.Notifier.
func (p *Publisher) KeyDeleted(key string) {
	p.Queue.PubWith(ValuesTopic+key, nil, 1, true)
}

// TreeDeleted implements peer.Notifier.
// Retained values under the tree are not cleared: subscribers are
// expected to drop them on this event.
func (p *Publisher) TreeDeleted(tree string) {
	p.Queue.PubWith(TreeDeletedTopic, []byte(tree), 1, false)
}

func valueMessage(key string, v bridge.Value) (string, []byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", nil, err
	}
	return ValuesTopic + key, payload, nil
}

// Event is a change observed on the mirror.
type Event struct {
	// Key is the full key path, empty for a tree deletion.
	Key string
	// Value is invalid when the key is deleted.
	Value bridge.Value
	// Tree is set for a tree deletion.
	Tree        string
	TreeDeleted bool
}

// ParseEvent decodes a message received on the mirror topics.
func ParseEvent(topic string, payload []byte) (Event, error) {
	if topic == TreeDeletedTopic {
		return Event{Tree: string(payload), TreeDeleted: true}, nil
	}
	if !strings.HasPrefix(topic, ValuesTopic) {
		return Event{}, fmt.Errorf("unexpected topic %q", topic)
	}
	ev := Event{Key: topic[len(ValuesTopic):]}
	if len(payload) == 0 {
		return ev, nil
	}
	if err := json.Unmarshal(payload, &ev.Value); err != nil {
		return ev, err
	}
	return ev, nil
}

// Watch subscribes the mirror topics and calls fn for each event.
func (q *Queue) Watch(fn func(Event)) paho.Token {
	handler := func(topic string, payload []byte) {
		ev, err := ParseEvent(topic, payload)
		if err != nil {
			glog.Warningf("mqtt %s: %v", topic, err)
			return
		}
		fn(ev)
	}
	q.Sub(TreeDeletedTopic, handler)
	return q.Sub(ValuesTopic+"#", handler)
}
