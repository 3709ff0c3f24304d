package progress

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	events []Event
}

func (r *recordingSink) Emit(e Event) { r.events = append(r.events, e) }

func TestMultiSinkFansOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	sink := MultiSink{a, b, Discard{}}

	sink.Emit(Event{RunID: "r1", Step: 1, Loss: 4.7})
	sink.Emit(Event{RunID: "r1", Step: 2, Loss: 4.4})

	assert.Len(t, a.events, 2)
	assert.Len(t, b.events, 2)
	assert.Equal(t, 2, b.events[1].Step)
}

func TestSign(t *testing.T) {
	payload := []byte(`{"run_id":"r1"}`)
	got := sign(payload, "secret")

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(payload)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, got)
}
