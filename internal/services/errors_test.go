package services_test

import (
	"errors"
	"strings"
	"testing"

	"logowatch/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransient, "twitch", "get streams", "batch request", base)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	for _, fragment := range []string{"twitch", "get streams", "batch request"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %q", fragment, err.Error())
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "monitor", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestClassification(t *testing.T) {
	cfgErr := services.Wrap(services.ErrConfiguration, "config", "validate", "threshold", nil)
	if !services.IsFatal(cfgErr) {
		t.Fatal("configuration errors are fatal at startup")
	}
	if services.IsFatal(services.Wrap(services.ErrPersistence, "store", "flush", "", nil)) {
		t.Fatal("persistence errors must not be fatal")
	}
	if !services.IsTransient(services.Wrap(services.ErrTransient, "twitch", "frame", "", nil)) {
		t.Fatal("expected transient classification")
	}
}
