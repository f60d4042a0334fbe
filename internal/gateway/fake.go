package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var ErrBadSignature = errors.New("signature mismatch")

// FakeProcessor is an in-process Processor for local runs and tests.
// Webhook payloads are plain event JSON and the signature must equal Secret.
type FakeProcessor struct {
	mu     sync.Mutex
	Secret string

	IntentErr   error
	CaptureErr  error
	RefundErr   error
	TransferErr error

	Intents   []IntentRequest
	Captures  []string
	Refunds   []RefundRequest
	Transfers []TransferRequest
}

func NewFakeProcessor(secret string) *FakeProcessor {
	return &FakeProcessor{Secret: secret}
}

func (f *FakeProcessor) CreatePaymentIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.IntentErr != nil {
		return nil, f.IntentErr
	}
	f.Intents = append(f.Intents, req)
	id := "pi_" + uuid.NewString()
	return &Intent{ID: id, ClientSecret: id + "_secret", Status: "requires_payment_method"}, nil
}

func (f *FakeProcessor) CaptureConfirmedIntent(_ context.Context, intentID string) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	f.Captures = append(f.Captures, intentID)
	return &Intent{ID: intentID, Status: "succeeded", ChargeID: "ch_" + uuid.NewString()}, nil
}

func (f *FakeProcessor) CreateRefund(_ context.Context, req RefundRequest) (*Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RefundErr != nil {
		return nil, f.RefundErr
	}
	f.Refunds = append(f.Refunds, req)
	return &Refund{ID: "re_" + uuid.NewString(), Status: "succeeded"}, nil
}

func (f *FakeProcessor) TransferToPayoutAccount(_ context.Context, req TransferRequest) (*Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TransferErr != nil {
		return nil, f.TransferErr
	}
	f.Transfers = append(f.Transfers, req)
	return &Transfer{ID: "tr_" + uuid.NewString()}, nil
}

func (f *FakeProcessor) TransferCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Transfers)
}

func (f *FakeProcessor) CaptureCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Captures)
}

func (f *FakeProcessor) RefundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Refunds)
}

type fakeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func (f *FakeProcessor) VerifyWebhookSignature(payload []byte, signature string) (*Event, error) {
	if signature != f.Secret {
		return nil, ErrBadSignature
	}
	var ev fakeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &Event{ID: ev.ID, Type: ev.Type, Object: ev.Data.Object}, nil
}

// EventPayload builds a webhook body the fake accepts.
func EventPayload(id, eventType string, object any) []byte {
	raw, _ := json.Marshal(object)
	ev := fakeEvent{ID: id, Type: eventType}
	ev.Data.Object = raw
	b, _ := json.Marshal(ev)
	return b
}
