package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockdrop/pkg/config"
)

// CallRecorder receives the outcome of each provider request. A nil recorder
// disables call accounting.
type CallRecorder interface {
	RecordProviderCall(endpoint string, duration time.Duration, err error)
}

// FMPClient handles Financial Modeling Prep API requests
type FMPClient struct {
	baseURL        string
	apiKey         string
	quoteBatchSize int
	client         *http.Client
	recorder       CallRecorder
}

// Quote represents a real-time quote from the provider
type Quote struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	ChangesPercentage float64 `json:"changesPercentage"`
	Change            float64 `json:"change"`
	DayLow            float64 `json:"dayLow"`
	DayHigh           float64 `json:"dayHigh"`
	YearHigh          float64 `json:"yearHigh"`
	YearLow           float64 `json:"yearLow"`
	MarketCap         float64 `json:"marketCap"`
	PriceAvg50        float64 `json:"priceAvg50"`
	PriceAvg200       float64 `json:"priceAvg200"`
	Volume            int64   `json:"volume"`
	AvgVolume         int64   `json:"avgVolume"`
	Exchange          string  `json:"exchange"`
	Open              float64 `json:"open"`
	PreviousClose     float64 `json:"previousClose"`
	EPS               float64 `json:"eps"`
	PE                float64 `json:"pe"`
	Timestamp         int64   `json:"timestamp"`
}

// ScreenerStock represents one candidate from the stock screener endpoint
type ScreenerStock struct {
	Symbol             string  `json:"symbol"`
	CompanyName        string  `json:"companyName"`
	MarketCap          float64 `json:"marketCap"`
	Sector             string  `json:"sector"`
	Industry           string  `json:"industry"`
	Beta               float64 `json:"beta"`
	Price              float64 `json:"price"`
	LastAnnualDividend float64 `json:"lastAnnualDividend"`
	Volume             int64   `json:"volume"`
	Exchange           string  `json:"exchange"`
	ExchangeShortName  string  `json:"exchangeShortName"`
	Country            string  `json:"country"`
	IsETF              bool    `json:"isEtf"`
	IsFund             bool    `json:"isFund"`
	IsActivelyTrading  bool    `json:"isActivelyTrading"`
}

// MarketHours represents open/close information for one exchange
type MarketHours struct {
	Exchange    string `json:"exchange"`
	Name        string `json:"name"`
	OpeningHour string `json:"openingHour"`
	ClosingHour string `json:"closingHour"`
	Timezone    string `json:"timezone"`
	IsOpen      bool   `json:"isTheStockMarketOpen"`
}

// SectorPerformance represents the aggregate daily change of one sector
type SectorPerformance struct {
	Sector            string `json:"sector"`
	ChangesPercentage string `json:"changesPercentage"`
}

// ScreenerParams represents the bounds passed to the screener endpoint.
// A nil bound imposes no constraint on that side.
type ScreenerParams struct {
	MarketCapMoreThan      *float64
	MarketCapLowerThan     *float64
	PriceMoreThan          *float64
	PriceLowerThan         *float64
	VolumeMoreThan         *int64
	VolumeLowerThan        *int64
	BetaMoreThan           *float64
	BetaLowerThan          *float64
	DividendMoreThan       *float64
	DividendLowerThan      *float64
	Sector                 string
	Industry               string
	Exchange               string
	Country                string
	IsETF                  *bool
	IsFund                 *bool
	IsActivelyTrading      *bool
	IncludeAllShareClasses bool
	Limit                  int
}

// NewFMPClient creates a new provider client. recorder may be nil.
func NewFMPClient(cfg config.ProviderConfig, recorder CallRecorder) *FMPClient {
	return &FMPClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		quoteBatchSize: cfg.QuoteBatchSize,
		client: &http.Client{
			Timeout: cfg.Timeout.Std(),
		},
		recorder: recorder,
	}
}

// ScreenStocks requests a broad candidate list matching the given bounds
func (f *FMPClient) ScreenStocks(ctx context.Context, params ScreenerParams) ([]ScreenerStock, error) {
	query := url.Values{}
	setFloat(query, "marketCapMoreThan", params.MarketCapMoreThan)
	setFloat(query, "marketCapLowerThan", params.MarketCapLowerThan)
	setFloat(query, "priceMoreThan", params.PriceMoreThan)
	setFloat(query, "priceLowerThan", params.PriceLowerThan)
	setInt(query, "volumeMoreThan", params.VolumeMoreThan)
	setInt(query, "volumeLowerThan", params.VolumeLowerThan)
	setFloat(query, "betaMoreThan", params.BetaMoreThan)
	setFloat(query, "betaLowerThan", params.BetaLowerThan)
	setFloat(query, "dividendMoreThan", params.DividendMoreThan)
	setFloat(query, "dividendLowerThan", params.DividendLowerThan)
	if params.Sector != "" {
		query.Set("sector", params.Sector)
	}
	if params.Industry != "" {
		query.Set("industry", params.Industry)
	}
	if params.Exchange != "" {
		query.Set("exchange", params.Exchange)
	}
	if params.Country != "" {
		query.Set("country", params.Country)
	}
	setBool(query, "isEtf", params.IsETF)
	setBool(query, "isFund", params.IsFund)
	setBool(query, "isActivelyTrading", params.IsActivelyTrading)
	if params.IncludeAllShareClasses {
		query.Set("includeAllShareClassesOnly", "true")
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}

	var stocks []ScreenerStock
	if err := f.get(ctx, "/stock-screener", query, &stocks); err != nil {
		return nil, err
	}
	return stocks, nil
}

// BatchQuotes requests detailed quotes for the given symbols in a single
// batched call. The symbol list is capped to the configured batch size to
// bound request size. An empty symbol set is a valid empty result.
func (f *FMPClient) BatchQuotes(ctx context.Context, symbols []string) ([]Quote, error) {
	if len(symbols) == 0 {
		return []Quote{}, nil
	}
	if f.quoteBatchSize > 0 && len(symbols) > f.quoteBatchSize {
		symbols = symbols[:f.quoteBatchSize]
	}

	var quotes []Quote
	endpoint := "/quote/" + url.PathEscape(strings.Join(symbols, ","))
	if err := f.get(ctx, endpoint, url.Values{}, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// CommodityQuotes requests quotes for all tracked commodities
func (f *FMPClient) CommodityQuotes(ctx context.Context) ([]Quote, error) {
	var quotes []Quote
	if err := f.get(ctx, "/quotes/commodity", url.Values{}, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// MarketHours requests open/close information for the major exchanges
func (f *FMPClient) MarketHours(ctx context.Context) ([]MarketHours, error) {
	var hours []MarketHours
	if err := f.get(ctx, "/is-the-market-open-all", url.Values{}, &hours); err != nil {
		return nil, err
	}
	return hours, nil
}

// SectorPerformance requests the aggregate daily change per sector
func (f *FMPClient) SectorPerformance(ctx context.Context) ([]SectorPerformance, error) {
	var sectors []SectorPerformance
	if err := f.get(ctx, "/sector-performance", url.Values{}, &sectors); err != nil {
		return nil, err
	}
	return sectors, nil
}

// get issues one GET request against the provider and decodes the JSON body.
// The API key is checked before any request is issued.
func (f *FMPClient) get(ctx context.Context, endpoint string, query url.Values, out interface{}) (err error) {
	if f.apiKey == "" {
		return ErrMissingAPIKey
	}

	if f.recorder != nil {
		// Record under the bare endpoint so batched symbol lists share one key.
		label := endpoint
		if i := strings.Index(label[1:], "/"); i >= 0 {
			label = label[:i+1]
		}
		start := time.Now()
		defer func() {
			f.recorder.RecordProviderCall(label, time.Since(start), err)
		}()
	}

	query.Set("apikey", f.apiKey)
	fullURL := fmt.Sprintf("%s%s?%s", f.baseURL, endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &FetchError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Endpoint: endpoint, Err: err}
	}

	return nil
}

func setFloat(query url.Values, key string, value *float64) {
	if value != nil {
		query.Set(key, strconv.FormatFloat(*value, 'f', -1, 64))
	}
}

func setInt(query url.Values, key string, value *int64) {
	if value != nil {
		query.Set(key, strconv.FormatInt(*value, 10))
	}
}

func setBool(query url.Values, key string, value *bool) {
	if value != nil {
		query.Set(key, strconv.FormatBool(*value))
	}
}
