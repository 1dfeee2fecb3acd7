package amqp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"analizador/internal/core"
)

type fakeChannel struct {
	published []amqp091.Publishing
	exchange  string
	key       string
	block     bool
	closed    bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.exchange, f.key = exchange, key
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func sampleDataset() *core.Dataset {
	entries := core.NewTable("Entradas", []string{"codigo"})
	entries.Append([]core.Value{core.Text("A1")})
	entries.Append([]core.Value{core.Text("A2")})
	families := core.NewTable("Familias", []string{"CODIGO"})
	families.Append([]core.Value{core.Text("A1")})
	return &core.Dataset{Identity: "abc123", Entries: entries, Families: families, Joined: entries}
}

func TestPublishDatasetLoaded(t *testing.T) {
	ch := &fakeChannel{}
	c := newClient(ch, "analizador", "dataset.loaded", nil)

	msg := NewDatasetLoadedMessage("ventas.xlsx", sampleDataset())
	if err := c.PublishDatasetLoaded(context.Background(), msg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(ch.published))
	}
	if ch.exchange != "analizador" || ch.key != "dataset.loaded" {
		t.Errorf("published to %q/%q", ch.exchange, ch.key)
	}
	p := ch.published[0]
	if p.ContentType != "application/json" || p.DeliveryMode != amqp091.Persistent {
		t.Errorf("unexpected publishing %+v", p)
	}
	got, err := DatasetLoadedMessageFromJSON(p.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.File != "ventas.xlsx" || got.Identity != "abc123" || got.Entries != 2 || got.Families != 1 || got.Joined != 2 {
		t.Errorf("unexpected message %+v", got)
	}
}

func TestPublishTimeout(t *testing.T) {
	ch := &fakeChannel{block: true}
	c := newClient(ch, "x", "y", nil)
	c.timeout = 20 * time.Millisecond

	start := time.Now()
	err := c.PublishDatasetLoaded(context.Background(), NewDatasetLoadedMessage("f.xlsx", sampleDataset()))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), "publish message") {
		t.Errorf("error should be wrapped: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("publish did not honour the timeout")
	}
}

func TestCloseAndNop(t *testing.T) {
	ch := &fakeChannel{}
	c := newClient(ch, "x", "y", nil)
	if err := c.Close(); err != nil || !ch.closed {
		t.Fatalf("close err=%v closed=%v", err, ch.closed)
	}

	var p Publisher = Nop{}
	if err := p.PublishDatasetLoaded(context.Background(), &DatasetLoadedMessage{}); err != nil {
		t.Fatal(err)
	}
}

func TestDatasetLoadedMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := DatasetLoadedMessageFromJSON([]byte("{")); err == nil {
		t.Fatal("expected error")
	}
}
