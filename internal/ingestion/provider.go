package ingestion

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/storage"
)

// CSVProvider serves price series from wide CSV files. The empty source
// names the default file; any other source is a path, resolved against the
// directory of the default file when relative.
type CSVProvider struct {
	path string
	opts CSVOptions

	mu    sync.Mutex
	cache map[string][]*domain.PriceSeries
}

// NewCSVProvider creates a provider whose default source is path.
func NewCSVProvider(path string, opts CSVOptions) *CSVProvider {
	return &CSVProvider{
		path:  path,
		opts:  opts,
		cache: make(map[string][]*domain.PriceSeries),
	}
}

// Load returns the series of source. Each file is read once.
func (p *CSVProvider) Load(_ context.Context, source string) ([]*domain.PriceSeries, error) {
	path := p.resolve(source)

	p.mu.Lock()
	defer p.mu.Unlock()

	if series, ok := p.cache[path]; ok {
		return series, nil
	}
	opts := p.opts
	if source != "" {
		// per-frequency files carry whatever symbols they have
		opts.Required = nil
	}
	series, err := LoadCSVFile(path, opts)
	if err != nil {
		return nil, err
	}
	p.cache[path] = series
	return series, nil
}

func (p *CSVProvider) resolve(source string) string {
	if source == "" {
		return p.path
	}
	if filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(filepath.Dir(p.path), source)
}

// StoreProvider serves price series from a storage.PriceSeriesStore. The
// empty source names the default dataset; any other source is a dataset.
type StoreProvider struct {
	store   storage.PriceSeriesStore
	dataset string
	classOf func(symbol string) domain.AssetClass
}

// NewStoreProvider creates a provider reading dataset by default.
func NewStoreProvider(store storage.PriceSeriesStore, dataset string, classOf func(string) domain.AssetClass) *StoreProvider {
	return &StoreProvider{store: store, dataset: dataset, classOf: classOf}
}

// Load returns every symbol of the dataset in ascending symbol order.
func (p *StoreProvider) Load(ctx context.Context, source string) ([]*domain.PriceSeries, error) {
	dataset := source
	if dataset == "" {
		dataset = p.dataset
	}

	symbols, err := p.store.ListSymbols(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("list symbols of %s: %w", dataset, err)
	}

	out := make([]*domain.PriceSeries, 0, len(symbols))
	for _, sym := range symbols {
		s, err := p.store.GetSeries(ctx, dataset, sym)
		if err != nil {
			return nil, fmt.Errorf("load %s/%s: %w", dataset, sym, err)
		}
		s.AssetClass = domain.AssetClassDefault
		if p.classOf != nil {
			s.AssetClass = p.classOf(sym)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
