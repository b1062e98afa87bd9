package yad2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adwatch/adwatch/internal/core/domain"
	"github.com/adwatch/adwatch/internal/core/ports/driven"
	"github.com/adwatch/adwatch/internal/logger"
)

const defaultBaseURL = "https://www.yad2.co.il"

// The site serves a browser bundle; a bare Go user agent gets a
// challenge page instead of the feed.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// The feed rides inside the page's embedded application state. Older
// deployments swap the attribute order on the script tag.
var nextDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<script id="__NEXT_DATA__" type="application/json">(.*?)</script>`),
	regexp.MustCompile(`(?s)<script type="application/json" id="__NEXT_DATA__">(.*?)</script>`),
}

// Options configures the client.
type Options struct {
	// BaseURL overrides the site URL, used in tests.
	BaseURL string
	// UserAgent overrides the request user agent.
	UserAgent string
	// Timeout bounds each HTTP request. Defaults to 30 seconds.
	Timeout time.Duration
	// RateLimit paces requests. Zero value uses DefaultRateLimit.
	RateLimit RateLimitConfig
}

// Client fetches listings from the site, one search request per
// configured neighborhood.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *RateLimiter
}

var _ driven.Fetcher = (*Client)(nil)

// NewClient creates a feed client with the given options.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   base,
		userAgent: ua,
		client:    &http.Client{Timeout: timeout},
		limiter:   NewRateLimiter(opts.RateLimit),
	}
}

// Fetch returns the current listing set for the criteria, one request
// per neighborhood merged and deduplicated by listing id. Listings on
// excluded streets never leave this boundary.
func (c *Client) Fetch(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Listing, error) {
	neighborhoods := criteria.Neighborhoods
	if len(neighborhoods) == 0 {
		// One unrestricted search for the city.
		neighborhoods = []string{""}
	}

	var all []domain.Listing
	seen := make(map[string]bool)

	for _, neighborhood := range neighborhoods {
		listings, err := c.search(ctx, criteria, neighborhood)
		if err != nil {
			return nil, err
		}
		for _, l := range listings {
			if seen[l.ID] {
				continue
			}
			seen[l.ID] = true
			all = append(all, l)
		}
	}

	logger.Debug("fetched %d listings across %d searches", len(all), len(neighborhoods))
	return all, nil
}

// search performs one search request and parses the embedded feed.
func (c *Client) search(ctx context.Context, criteria domain.SearchCriteria, neighborhood string) ([]domain.Listing, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting for rate limit: %v", domain.ErrFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/realestate/rent?"+searchParams(criteria, neighborhood).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", domain.ErrFetch, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,he;q=0.8")
	req.Header.Set("Referer", c.baseURL+"/realestate/rent")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: requesting feed: %v", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		c.limiter.RecordRateLimitError(retryAfter)
		return nil, fmt.Errorf("%w: rate limited by source", domain.ErrFetch)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrFetch, err)
	}

	raw, ok := extractEmbeddedState(body)
	if !ok {
		return nil, fmt.Errorf("%w: no embedded feed data in page", domain.ErrFetch)
	}

	return c.parseFeed(raw, criteria, neighborhood)
}

// searchParams builds the query for one neighborhood search.
func searchParams(criteria domain.SearchCriteria, neighborhood string) url.Values {
	params := url.Values{}
	if criteria.City != "" {
		params.Set("city", criteria.City)
	}
	if criteria.MinRooms > 0 || criteria.MaxRooms > 0 {
		params.Set("rooms", fmt.Sprintf("%s-%s",
			formatRooms(criteria.MinRooms), formatRooms(criteria.MaxRooms)))
	}
	if criteria.MaxPrice > 0 {
		params.Set("price", fmt.Sprintf("0-%d", criteria.MaxPrice))
	}
	params.Set("property", "1") // apartments
	if criteria.Parking {
		params.Set("parking", "1")
	}
	if criteria.Shelter {
		params.Set("shelter", "1")
	}
	params.Set("page", "1")
	params.Set("limit", "50")
	if neighborhood != "" {
		params.Set("text", neighborhood)
	}
	return params
}

func formatRooms(rooms float64) string {
	return strconv.FormatFloat(rooms, 'f', -1, 64)
}

// extractEmbeddedState pulls the application state JSON out of the page.
func extractEmbeddedState(page []byte) ([]byte, bool) {
	for _, pattern := range nextDataPatterns {
		if m := pattern.FindSubmatch(page); m != nil {
			return m[1], true
		}
	}
	return nil, false
}

// nextData mirrors the slice of the embedded state the feed lives in.
type nextData struct {
	Props struct {
		PageProps struct {
			DehydratedState struct {
				Queries []struct {
					State struct {
						Data json.RawMessage `json:"data"`
					} `json:"state"`
				} `json:"queries"`
			} `json:"dehydratedState"`
		} `json:"pageProps"`
	} `json:"props"`
}

// feedData splits the feed into private and agency listings. Items stay
// raw so one malformed record cannot sink the batch.
type feedData struct {
	Private []json.RawMessage `json:"private"`
	Agency  []json.RawMessage `json:"agency"`
}

// flexString accepts the string-or-number values the feed uses for house
// numbers and floors.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*s = ""
		return nil
	}
	if trimmed[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// feedItem is one listing as the site publishes it.
type feedItem struct {
	OrderID int64  `json:"orderId"`
	Token   string `json:"token"`
	Price   int    `json:"price"`
	Address struct {
		City struct {
			Text string `json:"text"`
		} `json:"city"`
		Neighborhood struct {
			Text string `json:"text"`
		} `json:"neighborhood"`
		Street struct {
			Text string `json:"text"`
		} `json:"street"`
		House struct {
			Number flexString `json:"number"`
			Floor  flexString `json:"floor"`
		} `json:"house"`
	} `json:"address"`
	AdditionalDetails struct {
		Property struct {
			Text string `json:"text"`
		} `json:"property"`
		RoomsCount  float64 `json:"roomsCount"`
		SquareMeter int     `json:"squareMeter"`
	} `json:"additionalDetails"`
	MetaData struct {
		CoverImage string `json:"coverImage"`
	} `json:"metaData"`
	Customer struct {
		AgencyName string `json:"agencyName"`
	} `json:"customer"`
}

// parseFeed walks the embedded state and normalizes every feed item.
func (c *Client) parseFeed(raw []byte, criteria domain.SearchCriteria, neighborhood string) ([]domain.Listing, error) {
	var page nextData
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("%w: parsing embedded state: %v", domain.ErrFetch, err)
	}

	var listings []domain.Listing
	for _, query := range page.Props.PageProps.DehydratedState.Queries {
		if len(query.State.Data) == 0 {
			continue
		}
		var feed feedData
		if err := json.Unmarshal(query.State.Data, &feed); err != nil {
			continue
		}
		if len(feed.Private) == 0 && len(feed.Agency) == 0 {
			continue
		}
		listings = append(listings, c.parseItems(feed.Private, false, criteria, neighborhood)...)
		listings = append(listings, c.parseItems(feed.Agency, true, criteria, neighborhood)...)
	}
	return listings, nil
}

func (c *Client) parseItems(items []json.RawMessage, agency bool, criteria domain.SearchCriteria, neighborhood string) []domain.Listing {
	var listings []domain.Listing
	for _, raw := range items {
		var item feedItem
		if err := json.Unmarshal(raw, &item); err != nil {
			logger.Warn("skipping malformed feed record: %v", err)
			continue
		}
		listing, ok := c.normalize(&item, agency)
		if !ok {
			continue
		}
		if neighborhood != "" && listing.Neighborhood != neighborhood {
			// The text search is fuzzy; keep only exact matches.
			continue
		}
		if criteria.StreetExcluded(listing.Street) {
			logger.Debug("dropping listing %s on excluded street %s", listing.ID, listing.Street)
			continue
		}
		listings = append(listings, listing)
	}
	return listings
}

// normalize converts a feed item to a domain listing. Records without a
// site id are dropped.
func (c *Client) normalize(item *feedItem, agency bool) (domain.Listing, bool) {
	if item.OrderID == 0 {
		logger.Warn("skipping feed record without listing id")
		return domain.Listing{}, false
	}

	listing := domain.Listing{
		ID:           strconv.FormatInt(item.OrderID, 10),
		Price:        item.Price,
		City:         item.Address.City.Text,
		Neighborhood: item.Address.Neighborhood.Text,
		Street:       item.Address.Street.Text,
		HouseNumber:  string(item.Address.House.Number),
		Floor:        string(item.Address.House.Floor),
		Rooms:        item.AdditionalDetails.RoomsCount,
		SquareMeters: item.AdditionalDetails.SquareMeter,
		URL:          c.baseURL + "/item/" + item.Token,
	}
	if agency {
		listing.Agency = item.Customer.AgencyName
	}

	title := strings.TrimSpace(item.AdditionalDetails.Property.Text)
	if addr := strings.TrimSpace(listing.Street + " " + listing.HouseNumber); addr != "" {
		if title != "" {
			title += " - " + addr
		} else {
			title = addr
		}
	}
	listing.Title = title

	attrs := make(map[string]string)
	if agency {
		attrs["type"] = "agency"
	} else {
		attrs["type"] = "private"
	}
	if item.MetaData.CoverImage != "" {
		attrs["cover_image"] = item.MetaData.CoverImage
	}
	listing.Attributes = attrs

	return listing, true
}
