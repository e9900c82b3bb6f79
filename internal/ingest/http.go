package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/AngelCh415/LEADS_GO/internal/utils"
)

// GetJSONWithRetry hace GET y decodifica JSON en dst, reintentando errores de
// red y respuestas no-2xx.
func GetJSONWithRetry(ctx context.Context, c HTTPClient, b utils.Backoff, url string, headers map[string]string, dst any) error {
	return b.Do(ctx, func(int) error {
		return getJSON(ctx, c, url, headers, dst)
	})
}

func getJSON(ctx context.Context, c HTTPClient, url string, headers map[string]string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("non-2xx: %d body=%s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
