package model

import (
	"errors"
	"testing"
	"time"
)

func TestStorageSettings_Validate(t *testing.T) {
	valid := func() *StorageSettings {
		return &StorageSettings{
			ActiveProvider:         ProviderObjectStore,
			SignedURLExpirySeconds: 3600,
			MaxFileSizeMB:          2048,
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *StorageSettings)
		wantErr error
	}{
		{"valid", func(s *StorageSettings) {}, nil},
		{"external is not a storage backend", func(s *StorageSettings) { s.ActiveProvider = ProviderExternal }, ErrInvalidActiveProvider},
		{"unknown provider", func(s *StorageSettings) { s.ActiveProvider = "floppy_disk" }, ErrInvalidActiveProvider},
		{"zero expiry", func(s *StorageSettings) { s.SignedURLExpirySeconds = 0 }, ErrInvalidExpiry},
		{"negative expiry", func(s *StorageSettings) { s.SignedURLExpirySeconds = -1 }, ErrInvalidExpiry},
		{"zero max file size", func(s *StorageSettings) { s.MaxFileSizeMB = 0 }, ErrInvalidMaxFileSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStorageSettings_DerivedValues(t *testing.T) {
	s := &StorageSettings{SignedURLExpirySeconds: 1800, MaxFileSizeMB: 500}

	if got := s.SignedURLExpiry(); got != 30*time.Minute {
		t.Errorf("SignedURLExpiry() = %v, want 30m", got)
	}
	if got := s.MaxFileSizeBytes(); got != 500*1024*1024 {
		t.Errorf("MaxFileSizeBytes() = %d, want %d", got, 500*1024*1024)
	}
}

func TestDefaultStorageSettings(t *testing.T) {
	s := DefaultStorageSettings()

	if err := s.Validate(); err != nil {
		t.Errorf("defaults must validate, got: %v", err)
	}
	if s.ActiveProvider != ProviderObjectStore {
		t.Errorf("default provider = %v, want object_store", s.ActiveProvider)
	}
}
