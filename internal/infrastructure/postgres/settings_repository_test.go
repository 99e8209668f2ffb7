package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/coursestream/mediahub/internal/domain/model"
	"github.com/coursestream/mediahub/internal/domain/repository"
)

var settingsTestColumns = []string{
	"active_provider", "signed_url_expiry_seconds", "max_file_size_mb", "auto_compress",
	"gateway_endpoint", "gateway_public_base_url",
	"cdn_storage_zone_url", "cdn_access_key", "cdn_pull_zone_url", "cdn_security_key",
	"updated_at",
}

func TestSettingsRepository_Get(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		mockFn  func(mock pgxmock.PgxPoolIface)
		want    *model.StorageSettings
		wantErr error
	}{
		{
			name: "returns the singleton record",
			mockFn: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(settingsTestColumns).AddRow(
					"cdn_zone", 1800, 500, true,
					"", "",
					"https://storage.example.net/zone", "zone-key", "https://pull.example.net", "signing-key",
					now,
				)
				mock.ExpectQuery("SELECT .* FROM storage_settings").
					WithArgs(settingsRowID).
					WillReturnRows(rows)
			},
			want: &model.StorageSettings{
				ActiveProvider:         model.ProviderCDNZone,
				SignedURLExpirySeconds: 1800,
				MaxFileSizeMB:          500,
				AutoCompress:           true,
				CDNStorageZoneURL:      "https://storage.example.net/zone",
				CDNAccessKey:           "zone-key",
				CDNPullZoneURL:         "https://pull.example.net",
				CDNSecurityKey:         "signing-key",
			},
		},
		{
			name: "no record yet",
			mockFn: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT .* FROM storage_settings").
					WithArgs(settingsRowID).
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: repository.ErrSettingsNotFound,
		},
		{
			name: "database error",
			mockFn: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT .* FROM storage_settings").
					WithArgs(settingsRowID).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: errors.New("failed to get storage settings"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer mock.Close()

			tt.mockFn(mock)

			repo := NewSettingsRepository(mock)
			got, err := repo.Get(context.Background())

			if tt.wantErr != nil {
				if err == nil {
					t.Errorf("Get() expected error, got nil")
					return
				}
				if !errors.Is(err, tt.wantErr) && !containsError(err, tt.wantErr) {
					t.Errorf("Get() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("Get() unexpected error = %v", err)
				return
			}

			if got.ActiveProvider != tt.want.ActiveProvider ||
				got.SignedURLExpirySeconds != tt.want.SignedURLExpirySeconds ||
				got.MaxFileSizeMB != tt.want.MaxFileSizeMB ||
				got.AutoCompress != tt.want.AutoCompress ||
				got.CDNStorageZoneURL != tt.want.CDNStorageZoneURL ||
				got.CDNAccessKey != tt.want.CDNAccessKey ||
				got.CDNPullZoneURL != tt.want.CDNPullZoneURL ||
				got.CDNSecurityKey != tt.want.CDNSecurityKey {
				t.Errorf("Get() = %+v, want %+v", got, tt.want)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestSettingsRepository_Save(t *testing.T) {
	settings := &model.StorageSettings{
		ActiveProvider:         model.ProviderGateway,
		SignedURLExpirySeconds: 3600,
		MaxFileSizeMB:          2048,
		GatewayEndpoint:        "https://gw.example.com",
		GatewayPublicBaseURL:   "https://videos.example.com",
	}

	tests := []struct {
		name    string
		mockFn  func(mock pgxmock.PgxPoolIface)
		wantErr bool
	}{
		{
			name: "upserts the singleton row",
			mockFn: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("INSERT INTO storage_settings").
					WithArgs(
						settingsRowID,
						"gateway",
						3600,
						2048,
						false,
						"https://gw.example.com",
						"https://videos.example.com",
						"", "", "", "",
						pgxmock.AnyArg(),
					).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "database error",
			mockFn: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("INSERT INTO storage_settings").
					WithArgs(
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer mock.Close()

			tt.mockFn(mock)

			repo := NewSettingsRepository(mock)
			err = repo.Save(context.Background(), settings)

			if (err != nil) != tt.wantErr {
				t.Errorf("Save() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && settings.UpdatedAt.IsZero() {
				t.Error("Save() must stamp UpdatedAt")
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}
