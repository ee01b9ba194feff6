package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"foundation/internal/catalog"
	"foundation/internal/donation"
	"foundation/internal/metrics"
	"foundation/internal/middleware"
	"foundation/internal/units"
)

type catalogTierDTO struct {
	Index         int     `json:"index"`
	Name          string  `json:"name,omitempty"`
	Amount        float64 `json:"amount"`
	DisplayAmount string  `json:"display_amount"`
	EthEquivalent float64 `json:"eth_equivalent"`
}

type catalogMethodDTO struct {
	Code      string            `json:"code"`
	Kind      string            `json:"kind"`
	Decimals  int               `json:"decimals,omitempty"`
	Chains    []string          `json:"chains,omitempty"`
	Contracts map[string]string `json:"contracts,omitempty"`
	Tiers     []catalogTierDTO  `json:"tiers"`
}

type catalogResponse struct {
	Locale    string              `json:"locale"`
	Recipient string              `json:"recipient,omitempty"`
	Chains    []catalog.ChainInfo `json:"chains"`
	Methods   []catalogMethodDTO  `json:"methods"`
}

// DonationCatalog lists methods, tiers and chains, with amounts formatted
// for the request locale.
func (a *App) DonationCatalog(w http.ResponseWriter, r *http.Request) {
	cat := a.catalog()
	locale := middleware.LocaleFromContext(r.Context())
	names := cat.TierNames()

	resp := catalogResponse{Locale: locale, Chains: cat.Chains()}
	if a.Config != nil && a.Config.DonationAddress != (common.Address{}) {
		resp.Recipient = a.Config.DonationAddress.Hex()
	}
	for _, code := range cat.Methods() {
		m, _ := cat.Method(code)
		dto := catalogMethodDTO{Code: string(code), Kind: string(m.Kind), Decimals: m.Decimals}
		if m.IsCrypto() {
			for _, ch := range cat.AvailableChains(code) {
				dto.Chains = append(dto.Chains, string(ch))
				if addr, ok := cat.TokenAddress(code, ch); ok {
					if dto.Contracts == nil {
						dto.Contracts = map[string]string{}
					}
					dto.Contracts[string(ch)] = addr
				}
			}
		}
		for i, amount := range m.Tiers {
			tier := catalogTierDTO{
				Index:         i,
				Amount:        amount,
				DisplayAmount: cat.FormatAmount(code, amount, locale),
				EthEquivalent: cat.ConvertMethodAmountToEth(amount, code),
			}
			if i < len(names) {
				tier.Name = names[i]
			}
			dto.Tiers = append(dto.Tiers, tier)
		}
		resp.Methods = append(resp.Methods, dto)
	}
	a.json(w, http.StatusOK, resp)
}

type quoteRequest struct {
	Method string `json:"method"`
	Chain  string `json:"chain"`
	Tier   int    `json:"tier"`
}

type quoteResponse struct {
	Method          string  `json:"method"`
	Chain           string  `json:"chain"`
	ChainID         int64   `json:"chain_id"`
	ChainIDHex      string  `json:"chain_id_hex"`
	Tier            int     `json:"tier"`
	Amount          float64 `json:"amount"`
	DisplayAmount   string  `json:"display_amount"`
	EthEquivalent   float64 `json:"eth_equivalent"`
	Decimals        int     `json:"decimals"`
	BaseUnits       string  `json:"base_units"`
	To              string  `json:"to"`
	Recipient       string  `json:"recipient"`
	Value           string  `json:"value"`
	Data            string  `json:"data,omitempty"`
	Gas             string  `json:"gas"`
	GasLimit        uint64  `json:"gas_limit"`
	ConfirmationURL string  `json:"confirmation_url"`
}

// DonationQuote prepares the exact transfer a browser wallet has to sign for
// a crypto tier. The confirmation URL lacks address and txHash, which the
// page appends once the wallet returns them.
func (a *App) DonationQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	cat := a.catalog()
	method, err := cat.ParsePaymentMethod(req.Method)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_method", "unknown payment method")
		return
	}
	if m, _ := cat.Method(method); !m.IsCrypto() {
		a.error(w, http.StatusBadRequest, "fiat_method", "use the bank transfer endpoint for "+string(method))
		return
	}
	var chain catalog.Chain
	if req.Chain == "" {
		chain = cat.AvailableChains(method)[0]
	} else if chain, err = cat.ParseChain(req.Chain); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_chain", "unknown chain")
		return
	}
	var recipient common.Address
	if a.Config != nil {
		recipient = a.Config.DonationAddress
	}
	transfer, err := donation.BuildTransfer(cat, method, chain, req.Tier, recipient)
	if err != nil {
		a.donationError(w, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	display := cat.FormatAmount(method, transfer.Amount, locale)
	conf := transfer.Confirmation(display, common.Address{}, common.Hash{})
	metrics.DonationQuotes.WithLabelValues(string(method), string(chain)).Inc()

	a.json(w, http.StatusOK, quoteResponse{
		Method:          string(method),
		Chain:           string(chain),
		ChainID:         transfer.ChainID,
		ChainIDHex:      "0x" + strconv.FormatInt(transfer.ChainID, 16),
		Tier:            transfer.TierIndex,
		Amount:          transfer.Amount,
		DisplayAmount:   display,
		EthEquivalent:   cat.ConvertMethodAmountToEth(transfer.Amount, method),
		Decimals:        transfer.Decimals,
		BaseUnits:       transfer.BaseUnits.String(),
		To:              transfer.To.Hex(),
		Recipient:       transfer.Recipient.Hex(),
		Value:           units.ToHex(transfer.Value),
		Data:            transfer.Data,
		Gas:             "0x" + strconv.FormatUint(transfer.GasLimit, 16),
		GasLimit:        transfer.GasLimit,
		ConfirmationURL: conf.URL(a.confirmationURL()),
	})
}

type bankTransferRequest struct {
	Method string `json:"method"`
	Tier   int    `json:"tier"`
}

type bankTransferResponse struct {
	IntentID        string `json:"intent_id"`
	Amount          string `json:"amount"`
	DisplayAmount   string `json:"display_amount"`
	Method          string `json:"method"`
	ConfirmationURL string `json:"confirmation_url"`
}

// DonationBankTransfer records a fiat donation intent and returns where to
// send the visitor next.
func (a *App) DonationBankTransfer(w http.ResponseWriter, r *http.Request) {
	var req bankTransferRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	cat := a.catalog()
	if req.Method == "" {
		req.Method = string(catalog.MethodJPY)
	}
	method, err := cat.ParsePaymentMethod(req.Method)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_method", "unknown payment method")
		return
	}
	if m, _ := cat.Method(method); m.IsCrypto() {
		a.error(w, http.StatusBadRequest, "crypto_method", string(method)+" settles on-chain")
		return
	}

	logger := a.Logger.With().Str("request_id", middleware.RequestIDFromContext(r.Context())).Logger()
	orch, err := donation.NewOrchestrator(donation.Options{
		Catalog:         cat,
		Intents:         a.Intents,
		ConfirmationURL: a.confirmationURL(),
		Locale:          middleware.LocaleFromContext(r.Context()),
		Logger:          &logger,
	})
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to start donation")
		return
	}
	if err := orch.SelectMethod(r.Context(), method); err != nil {
		a.donationError(w, err)
		return
	}
	if err := orch.SelectTier(req.Tier); err != nil {
		a.donationError(w, err)
		return
	}
	res, err := orch.Donate(r.Context())
	if err != nil {
		metrics.BankTransferIntents.WithLabelValues("failed").Inc()
		a.donationError(w, err)
		return
	}
	metrics.BankTransferIntents.WithLabelValues("recorded").Inc()
	a.json(w, http.StatusCreated, bankTransferResponse{
		IntentID:        res.IntentID,
		Amount:          res.Confirmation.Amount,
		DisplayAmount:   res.Confirmation.DisplayAmount,
		Method:          res.Confirmation.Method,
		ConfirmationURL: res.RedirectURL,
	})
}

func (a *App) donationError(w http.ResponseWriter, err error) {
	var de *donation.Error
	if !errors.As(err, &de) {
		a.Logger.Error().Err(err).Msg("donation request failed")
		a.error(w, http.StatusInternalServerError, "internal", "donation failed")
		return
	}
	switch de.Kind {
	case donation.KindPrecondition:
		status := http.StatusBadRequest
		if de.Code == donation.CodeRecipientMissing {
			status = http.StatusServiceUnavailable
		}
		a.error(w, status, de.Code, de.Message)
	case donation.KindPersistence:
		a.Logger.Error().Err(err).Msg("donation persistence failed")
		a.error(w, http.StatusInternalServerError, de.Code, de.Message)
	default:
		a.error(w, http.StatusBadGateway, de.Code, de.Message)
	}
}
