package futures

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/apd/v3"

	"asterdex/pkg/core"
)

// AssetBalance is a single futures wallet balance entry.
type AssetBalance struct {
	Asset              string      `json:"asset"`
	Balance            apd.Decimal `json:"balance"`
	CrossWalletBalance apd.Decimal `json:"crossWalletBalance"`
	AvailableBalance   apd.Decimal `json:"availableBalance"`
	CrossUnPnL         apd.Decimal `json:"crossUnPnl"`
	UpdateTime         int64       `json:"updateTime"`
}

// Balance returns the wallet balances of the futures account.
func (s *Service) Balance(ctx context.Context) ([]AssetBalance, error) {
	body, err := s.call.Call(ctx, newRequest("balance"))
	if err != nil {
		return nil, err
	}
	var balances []AssetBalance
	if err := sonic.Unmarshal(body, &balances); err != nil {
		return nil, core.NewAPIError(0, "", "parse balance: "+err.Error())
	}
	return balances, nil
}

type wirePosition struct {
	Symbol           string            `json:"symbol"`
	PositionAmt      apd.Decimal       `json:"positionAmt"`
	EntryPrice       apd.Decimal       `json:"entryPrice"`
	MarkPrice        apd.Decimal       `json:"markPrice"`
	UnRealizedProfit apd.Decimal       `json:"unRealizedProfit"`
	LiquidationPrice apd.Decimal       `json:"liquidationPrice"`
	Leverage         apd.Decimal       `json:"leverage"`
	MarginType       string            `json:"marginType"`
	PositionSide     core.PositionSide `json:"positionSide"`
}

// Positions returns position risk for the account, optionally filtered
// by symbol.
func (s *Service) Positions(ctx context.Context, symbol string) ([]core.Position, error) {
	req := newRequest("positions")
	if symbol != "" {
		req.SetQuery("symbol", strings.ToUpper(symbol))
	}
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	var raw []wirePosition
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, core.NewAPIError(0, "", "parse positions: "+err.Error())
	}

	positions := make([]core.Position, 0, len(raw))
	for _, p := range raw {
		leverage, err := p.Leverage.Int64()
		if err != nil {
			leverage = 0
		}
		positions = append(positions, core.Position{
			Symbol:           p.Symbol,
			Side:             p.PositionSide,
			Amount:           p.PositionAmt,
			EntryPrice:       p.EntryPrice,
			MarkPrice:        p.MarkPrice,
			UnrealizedProfit: p.UnRealizedProfit,
			LiquidationPrice: p.LiquidationPrice,
			Leverage:         int(leverage),
			Isolated:         p.MarginType == "isolated",
		})
	}
	return positions, nil
}

// SetLeverageRequest changes the initial leverage of a symbol.
type SetLeverageRequest struct {
	Symbol   string `validate:"required"`
	Leverage int    `validate:"required,gte=1,lte=125"`
}

// LeverageResult echoes the applied leverage settings.
type LeverageResult struct {
	Symbol           string      `json:"symbol"`
	Leverage         int         `json:"leverage"`
	MaxNotionalValue apd.Decimal `json:"maxNotionalValue"`
}

// SetLeverage changes the initial leverage for a symbol.
func (s *Service) SetLeverage(ctx context.Context, in SetLeverageRequest) (*LeverageResult, error) {
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	req := newRequest("leverage").SetForm(core.Params{
		"symbol":   strings.ToUpper(in.Symbol),
		"leverage": in.Leverage,
	})
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	var result LeverageResult
	if err := sonic.Unmarshal(body, &result); err != nil {
		return nil, core.NewAPIError(0, "", "parse leverage: "+err.Error())
	}
	return &result, nil
}

// IncomeRequest filters the income history query.
type IncomeRequest struct {
	Symbol     string
	IncomeType string
	StartTime  int64
	EndTime    int64
	Limit      int `validate:"omitempty,gte=1,lte=1000"`
}

// IncomeEntry is one row of the account income ledger.
type IncomeEntry struct {
	Symbol     string      `json:"symbol"`
	IncomeType string      `json:"incomeType"`
	Income     apd.Decimal `json:"income"`
	Asset      string      `json:"asset"`
	Info       string      `json:"info"`
	Time       int64       `json:"time"`
	TranID     int64       `json:"tranId"`
}

// Income returns the account income history: realized pnl, funding
// fees, commissions and transfers.
func (s *Service) Income(ctx context.Context, in IncomeRequest) ([]IncomeEntry, error) {
	if err := s.validateStruct(in); err != nil {
		return nil, err
	}
	req := newRequest("income")
	if in.Symbol != "" {
		req.SetQuery("symbol", strings.ToUpper(in.Symbol))
	}
	if in.IncomeType != "" {
		req.SetQuery("incomeType", in.IncomeType)
	}
	if in.StartTime > 0 {
		req.SetQuery("startTime", in.StartTime)
	}
	if in.EndTime > 0 {
		req.SetQuery("endTime", in.EndTime)
	}
	if in.Limit > 0 {
		req.SetQuery("limit", in.Limit)
	}
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	var entries []IncomeEntry
	if err := sonic.Unmarshal(body, &entries); err != nil {
		return nil, core.NewAPIError(0, "", "parse income: "+err.Error())
	}
	return entries, nil
}

// MarkPrice returns the mark price and funding state for a symbol.
func (s *Service) MarkPrice(ctx context.Context, symbol string) (*core.MarkPrice, error) {
	if symbol == "" {
		return nil, core.NewValidationError("symbol", "symbol is required")
	}
	req := newRequest("markPrice").SetQuery("symbol", strings.ToUpper(symbol))
	body, err := s.call.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	var w struct {
		Symbol          string      `json:"symbol"`
		MarkPrice       apd.Decimal `json:"markPrice"`
		IndexPrice      apd.Decimal `json:"indexPrice"`
		LastFundingRate apd.Decimal `json:"lastFundingRate"`
		NextFundingTime int64       `json:"nextFundingTime"`
		Time            int64       `json:"time"`
	}
	if err := sonic.Unmarshal(body, &w); err != nil {
		return nil, core.NewAPIError(0, "", "parse mark price: "+err.Error())
	}
	return &core.MarkPrice{
		Symbol:          w.Symbol,
		MarkPrice:       w.MarkPrice,
		IndexPrice:      w.IndexPrice,
		FundingRate:     w.LastFundingRate,
		NextFundingTime: time.UnixMilli(w.NextFundingTime),
		Timestamp:       time.UnixMilli(w.Time),
	}, nil
}
