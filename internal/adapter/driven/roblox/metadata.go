package roblox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/ericfisherdev/ramn/internal/domain/model"
	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.PlaceMetadataSource = (*MultigetSource)(nil)
	_ driven.PlaceMetadataSource = (*GamesSource)(nil)
	_ driven.PlaceMetadataSource = (*ScrapeSource)(nil)
)

// maxPageBytes bounds how much of a game page the scrape strategy reads.
const maxPageBytes = 4 << 20

// namePolicy strips any markup that leaks into game names.
var namePolicy = bluemonday.StrictPolicy()

// MetadataSources returns the lookup strategies in the order they should be
// tried: the multiget endpoint, the games endpoint, then the game page.
func (c *Client) MetadataSources() []driven.PlaceMetadataSource {
	return []driven.PlaceMetadataSource{
		&MultigetSource{client: c},
		&GamesSource{client: c},
		&ScrapeSource{client: c},
	}
}

// MultigetSource resolves places through the multiget-place-details endpoint.
type MultigetSource struct {
	client *Client
}

func (s *MultigetSource) Name() string { return "multiget" }

func (s *MultigetSource) LookupPlace(ctx context.Context, placeID string) (model.PlaceInfo, error) {
	var places []placeJSON
	u := s.client.endpoints.Games + "/v1/games/multiget-place-details?placeIds=" + url.QueryEscape(placeID)
	if err := s.client.getJSON(ctx, u, &places); err != nil {
		return model.PlaceInfo{}, fmt.Errorf("multiget place %s: %w", placeID, err)
	}
	if len(places) == 0 {
		return model.PlaceInfo{}, fmt.Errorf("multiget place %s: %w", placeID, driven.ErrMetadataUnavailable)
	}
	return places[0].info(placeID)
}

// GamesSource resolves places through the games endpoint.
type GamesSource struct {
	client *Client
}

func (s *GamesSource) Name() string { return "games" }

func (s *GamesSource) LookupPlace(ctx context.Context, placeID string) (model.PlaceInfo, error) {
	var body struct {
		Data []placeJSON `json:"data"`
	}
	u := s.client.endpoints.Games + "/v1/games?placeIds=" + url.QueryEscape(placeID)
	if err := s.client.getJSON(ctx, u, &body); err != nil {
		return model.PlaceInfo{}, fmt.Errorf("games place %s: %w", placeID, err)
	}
	if len(body.Data) == 0 {
		return model.PlaceInfo{}, fmt.Errorf("games place %s: %w", placeID, driven.ErrMetadataUnavailable)
	}
	return body.Data[0].info(placeID)
}

// ScrapeSource reads the data-place-name and data-universe-id attributes from
// the public game page.
type ScrapeSource struct {
	client *Client
}

func (s *ScrapeSource) Name() string { return "scrape" }

func (s *ScrapeSource) LookupPlace(ctx context.Context, placeID string) (model.PlaceInfo, error) {
	resp, err := s.client.getMetadata(ctx, s.client.endpoints.Web+"/games/"+url.PathEscape(placeID), "text/html")
	if err != nil {
		return model.PlaceInfo{}, fmt.Errorf("scrape place %s: %w", placeID, err)
	}
	defer resp.Body.Close()

	info := scrapePlaceAttributes(io.LimitReader(resp.Body, maxPageBytes))
	info.Name = cleanName(info.Name)
	if info.Name == "" {
		return model.PlaceInfo{}, fmt.Errorf("scrape place %s: %w", placeID, driven.ErrMetadataUnavailable)
	}
	return info, nil
}

// scrapePlaceAttributes walks the page tokens and returns the first
// data-place-name and data-universe-id attribute values found.
func scrapePlaceAttributes(r io.Reader) model.PlaceInfo {
	var info model.PlaceInfo
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return info
		case html.StartTagToken, html.SelfClosingTagToken:
			_, hasAttr := z.TagName()
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				switch string(key) {
				case "data-place-name":
					if info.Name == "" {
						info.Name = string(val)
					}
				case "data-universe-id":
					if info.UniverseID == "" && isDigits(string(val)) {
						info.UniverseID = string(val)
					}
				}
			}
			if info.Name != "" && info.UniverseID != "" {
				return info
			}
		}
	}
}

// GameIcon returns the 150x150 PNG icon URL for a universe.
func (c *Client) GameIcon(ctx context.Context, universeID string) (string, error) {
	q := url.Values{}
	q.Set("universeIds", universeID)
	q.Set("size", "150x150")
	q.Set("format", "Png")
	q.Set("isCircular", "false")

	var body struct {
		Data []struct {
			ImageURL string `json:"imageUrl"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, c.endpoints.Thumbnails+"/v1/games/icons?"+q.Encode(), &body); err != nil {
		return "", fmt.Errorf("game icon for universe %s: %w", universeID, err)
	}
	if len(body.Data) == 0 || body.Data[0].ImageURL == "" {
		return "", fmt.Errorf("game icon for universe %s: %w", universeID, driven.ErrMetadataUnavailable)
	}
	return body.Data[0].ImageURL, nil
}

// placeJSON is the shape shared by the multiget and games endpoints.
type placeJSON struct {
	Name       string `json:"name"`
	UniverseID int64  `json:"universeId"`
}

func (p placeJSON) info(placeID string) (model.PlaceInfo, error) {
	name := cleanName(p.Name)
	if name == "" {
		return model.PlaceInfo{}, fmt.Errorf("place %s has no name: %w", placeID, driven.ErrMetadataUnavailable)
	}
	info := model.PlaceInfo{Name: name}
	if p.UniverseID > 0 {
		info.UniverseID = strconv.FormatInt(p.UniverseID, 10)
	}
	return info, nil
}

func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	resp, err := c.getMetadata(ctx, url, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// cleanName strips markup and resolves HTML entities in a game name.
func cleanName(name string) string {
	return strings.TrimSpace(html.UnescapeString(namePolicy.Sanitize(name)))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
