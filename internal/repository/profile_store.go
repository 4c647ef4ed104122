package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"twin-research/internal/domain"
)

// ErrProfileNotFound indica que el store no tiene el perfil pedido.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore define el acceso de solo lectura al store externo de perfiles.
type ProfileStore interface {
	GetActiveProfiles(ctx context.Context) ([]domain.Profile, error)
	GetProfileVersion(ctx context.Context, profileID string) (domain.Profile, error)
}

// SupabaseStore implementa ProfileStore contra la API REST de Supabase usando
// la clave anon restringida (respeta RLS en el camino de lectura).
type SupabaseStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewSupabaseStore(baseURL, apiKey string, httpClient *http.Client) *SupabaseStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &SupabaseStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  httpClient,
	}
}

// GetActiveProfiles devuelve todas las versiones de perfil activas en el orden
// que las retorna el store.
func (s *SupabaseStore) GetActiveProfiles(ctx context.Context) ([]domain.Profile, error) {
	var profiles []domain.Profile
	if err := s.get(ctx, "profile_versions?is_active=eq.true", &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// GetProfileVersion devuelve un perfil por su profile_id, incluyendo su bag de
// atributos, o ErrProfileNotFound si no existe.
func (s *SupabaseStore) GetProfileVersion(ctx context.Context, profileID string) (domain.Profile, error) {
	var profiles []domain.Profile
	endpoint := "profile_versions?profile_id=eq." + url.QueryEscape(profileID)
	if err := s.get(ctx, endpoint, &profiles); err != nil {
		return domain.Profile{}, err
	}
	if len(profiles) == 0 {
		return domain.Profile{}, ErrProfileNotFound
	}
	return profiles[0], nil
}

func (s *SupabaseStore) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/rest/v1/"+endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("supabase error: status=%d body=%s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
