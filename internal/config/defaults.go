package config

import "contrarian-lab/internal/domain"

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Path:       "contrarian_prices.csv",
			DateColumn: "date",
			Dataset:    "daily",
		},
		Frequencies: map[string]FrequencyConfig{
			"weekly": {
				Label:          "W",
				Rule:           "W-FRI",
				UpStreak:       7,
				DownStreak:     7,
				HoldingPeriods: 2,
				MinAmplitude:   0.05,
			},
			"monthly": {
				Label:          "M",
				Rule:           "M",
				UpStreak:       8,
				DownStreak:     8,
				HoldingPeriods: 1,
				MinAmplitude:   0.08,
			},
			"quarterly": {
				Label:          "Q",
				Rule:           "Q",
				UpStreak:       5,
				DownStreak:     5,
				HoldingPeriods: 1,
				MinAmplitude:   0.10,
			},
		},
		Trading: TradingConfig{
			LongOnly:        true,
			EntryTiming:     EntrySignalClose,
			AmplitudeAnchor: AnchorStreakStart,
			HistoryBuffer:   DefaultHistoryBuffer,
		},
		AssetClassMap: defaultAssetClassMap(),
		Position: map[domain.AssetClass]SizingProfile{
			domain.AssetClassCommodity: {Sensitivity: 3.0, MinPos: 0.05, MaxPos: 0.35},
			domain.AssetClassBond:      {Sensitivity: 6.0, MinPos: 0.05, MaxPos: 0.50},
			domain.AssetClassEquity:    {Sensitivity: 4.0, MinPos: 0.05, MaxPos: 0.40},
			domain.AssetClassDefault:   {Sensitivity: 4.0, MinPos: 0.0, MaxPos: 0.30},
		},
		Portfolio: PortfolioConfig{
			GrossCap:         1.0,
			PerSymbolCap:     0.60,
			RoundTripCostBps: 5.0,
		},
		Output: OutputConfig{
			Dir:        ".",
			SummaryCSV: "contrarian_summary.csv",
			EquityCSV:  "contrarian_equity_curve.csv",
			TradesCSV:  "contrarian_trades.csv",
			ByAssetCSV: "contrarian_by_asset.csv",
			ByFreqCSV:  "contrarian_by_freq.csv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultAssetClassMap() map[string]domain.AssetClass {
	bonds := []string{
		"中债-新综合财富(10年以上)指数",
		"美国国债10年期",
	}
	commodities := []string{
		"伦敦金现",
		"伦敦银现",
		"ICE布油",
		"煤炭",
		"现货结算价:LME铜",
		"期货收盘价(连续):CBOT小麦",
		"期货收盘价(连续):CBOT大豆",
	}
	equities := []string{
		"标普500",
		"中证全指",
		"万得科技大类指数",
		"中证红利",
		"中信风格指数:金融",
		"中信风格指数:周期",
		"中信风格指数:消费",
		"中信风格指数:成长",
		"中信风格指数:稳定",
		"恒生指数",
		"恒生地产分类指数",
		"恒生综合行业指数-资讯科技业",
		"恒生医疗保健指数",
		"申万小盘指数",
		"申万大盘指数",
		"申万中盘指数",
	}

	m := make(map[string]domain.AssetClass, len(bonds)+len(commodities)+len(equities))
	for _, s := range bonds {
		m[s] = domain.AssetClassBond
	}
	for _, s := range commodities {
		m[s] = domain.AssetClassCommodity
	}
	for _, s := range equities {
		m[s] = domain.AssetClassEquity
	}
	return m
}
