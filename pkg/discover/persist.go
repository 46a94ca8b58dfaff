package discover

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pulse-fetch/pulse-fetch/pkg/store"
)

// persist writes the full discovered link set as a single JSON resource,
// reusing the same save/return modes the Scrape Orchestrator offers.
func (d *Discoverer) persist(ctx context.Context, seedURL string, links []Link) (string, error) {
	payload, err := json.Marshal(links)
	if err != nil {
		return "", fmt.Errorf("discover: marshal links: %w", err)
	}

	res, err := d.Store.WriteMulti(ctx, store.WriteMultiInput{
		URL:      seedURL,
		MimeType: "application/json",
		Raw:      payload,
	})
	if err != nil {
		return "", err
	}
	return res.RawURI, nil
}
