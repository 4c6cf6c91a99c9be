//go:build !integration

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveGeneration_NormalizesLabels(t *testing.T) {
	before := testutil.ToFloat64(aiGenerationsTotal.WithLabelValues("gemini", "adobe", "true"))
	ObserveGeneration(" Gemini ", "ADOBE", 120*time.Millisecond, true)
	after := testutil.ToFloat64(aiGenerationsTotal.WithLabelValues("gemini", "adobe", "true"))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestIncKeyStoreOp_Result(t *testing.T) {
	IncKeyStoreOp("redis", "save", errors.New("down"))
	if v := testutil.ToFloat64(keyStoreOpsTotal.WithLabelValues("redis", "save", "error")); v < 1 {
		t.Fatalf("expected error result to be counted, got %v", v)
	}
}

func TestMustRegister_Idempotent(t *testing.T) {
	MustRegister()
	MustRegister()
}
