// Package catalog holds the static donation tables: payment methods and their
// fixed amount tiers, supported chains and ERC-20 token metadata.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// PaymentMethod enumerates accepted donation currencies.
type PaymentMethod string

const (
	MethodETH  PaymentMethod = "ETH"
	MethodUSDC PaymentMethod = "USDC"
	MethodUSDT PaymentMethod = "USDT"
	MethodDAI  PaymentMethod = "DAI"
	MethodJPY  PaymentMethod = "JPY"
)

// MethodKind tells how a method settles.
type MethodKind string

const (
	KindNative MethodKind = "native"
	KindToken  MethodKind = "token"
	KindFiat   MethodKind = "fiat"
)

// Chain enumerates supported EVM networks.
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainOptimism Chain = "optimism"
	ChainArbitrum Chain = "arbitrum"
	ChainBase     Chain = "base"
)

// tierMatchEpsilon is the tolerance used when matching an amount to a tier.
const tierMatchEpsilon = 1e-9

var (
	ErrUnknownMethod = errors.New("catalog: unknown payment method")
	ErrUnknownChain  = errors.New("catalog: unknown chain")
)

// ChainInfo maps a chain name to its numeric chain identifier.
type ChainInfo struct {
	Name Chain `yaml:"name" json:"name"`
	ID   int64 `yaml:"id" json:"id"`
}

// TokenMetadata describes an ERC-20 token. Not every token is deployed on
// every chain.
type TokenMetadata struct {
	Decimals  int
	Addresses map[Chain]string
}

// Method is one payment method with its fixed tiers.
type Method struct {
	Code  PaymentMethod
	Kind  MethodKind
	Tiers []float64
	// Decimals is the on-chain precision; zero for fiat.
	Decimals int
	Token    *TokenMetadata
}

// IsCrypto reports whether the method settles on-chain.
func (m *Method) IsCrypto() bool {
	return m != nil && m.Kind != KindFiat
}

// Catalog is an immutable view over the donation tables.
type Catalog struct {
	chains          []ChainInfo
	methods         map[PaymentMethod]*Method
	order           []PaymentMethod
	tierNames       []string
	localeOverrides map[PaymentMethod]string
}

type catalogDocument struct {
	TierNames       []string          `yaml:"tier_names"`
	Chains          []ChainInfo       `yaml:"chains"`
	Methods         []methodDocument  `yaml:"methods"`
	LocaleOverrides map[string]string `yaml:"locale_overrides"`
}

type methodDocument struct {
	Code      string            `yaml:"code"`
	Kind      string            `yaml:"kind"`
	Decimals  int               `yaml:"decimals"`
	Tiers     []float64         `yaml:"tiers"`
	Contracts map[string]string `yaml:"contracts"`
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog invalid: %v", err))
	}
	return c
}

// Load reads a catalog document from path. An empty path yields Default().
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	c := &Catalog{
		chains:          doc.Chains,
		methods:         make(map[PaymentMethod]*Method, len(doc.Methods)),
		tierNames:       doc.TierNames,
		localeOverrides: make(map[PaymentMethod]string, len(doc.LocaleOverrides)),
	}
	for _, md := range doc.Methods {
		code := PaymentMethod(strings.ToUpper(strings.TrimSpace(md.Code)))
		if _, dup := c.methods[code]; dup {
			return nil, fmt.Errorf("catalog: duplicate method %s", code)
		}
		m := &Method{
			Code:     code,
			Kind:     MethodKind(strings.ToLower(md.Kind)),
			Tiers:    append([]float64(nil), md.Tiers...),
			Decimals: md.Decimals,
		}
		if m.Kind == KindToken {
			m.Token = &TokenMetadata{Decimals: md.Decimals, Addresses: make(map[Chain]string, len(md.Contracts))}
			for chain, addr := range md.Contracts {
				m.Token.Addresses[Chain(strings.ToLower(chain))] = addr
			}
		}
		c.methods[code] = m
		c.order = append(c.order, code)
	}
	for method, locale := range doc.LocaleOverrides {
		c.localeOverrides[PaymentMethod(strings.ToUpper(method))] = locale
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate enforces the catalog invariants: ETH exists, every method has as
// many tiers as ETH, tiers are positive, token contracts are well-formed and
// refer to known chains.
func (c *Catalog) Validate() error {
	eth, ok := c.methods[MethodETH]
	if !ok || eth.Kind != KindNative {
		return errors.New("catalog: native ETH method is required")
	}
	if len(eth.Tiers) == 0 {
		return errors.New("catalog: ETH tiers are required")
	}
	if len(c.chains) == 0 {
		return errors.New("catalog: at least one chain is required")
	}
	seen := make(map[Chain]struct{}, len(c.chains))
	for _, ch := range c.chains {
		if ch.Name == "" || ch.ID <= 0 {
			return fmt.Errorf("catalog: invalid chain %q (%d)", ch.Name, ch.ID)
		}
		if _, dup := seen[ch.Name]; dup {
			return fmt.Errorf("catalog: duplicate chain %s", ch.Name)
		}
		seen[ch.Name] = struct{}{}
	}
	for _, code := range c.order {
		m := c.methods[code]
		switch m.Kind {
		case KindNative, KindToken, KindFiat:
		default:
			return fmt.Errorf("catalog: method %s has unknown kind %q", code, m.Kind)
		}
		if len(m.Tiers) != len(eth.Tiers) {
			return fmt.Errorf("catalog: method %s has %d tiers, ETH has %d", code, len(m.Tiers), len(eth.Tiers))
		}
		for i, amount := range m.Tiers {
			if !(amount > 0) || math.IsInf(amount, 0) {
				return fmt.Errorf("catalog: method %s tier %d must be positive", code, i)
			}
		}
		if m.Kind != KindToken {
			continue
		}
		if m.Token.Decimals != 6 && m.Token.Decimals != 18 {
			return fmt.Errorf("catalog: token %s has unsupported decimals %d", code, m.Token.Decimals)
		}
		for chain, addr := range m.Token.Addresses {
			if _, ok := seen[chain]; !ok {
				return fmt.Errorf("catalog: token %s references unknown chain %s", code, chain)
			}
			if !common.IsHexAddress(addr) {
				return fmt.Errorf("catalog: token %s on %s has malformed address %q", code, chain, addr)
			}
		}
	}
	return nil
}

// ParsePaymentMethod normalizes s into a known method.
func (c *Catalog) ParsePaymentMethod(s string) (PaymentMethod, error) {
	code := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := c.methods[code]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
	return code, nil
}

// ParseChain normalizes s into a known chain.
func (c *Catalog) ParseChain(s string) (Chain, error) {
	name := Chain(strings.ToLower(strings.TrimSpace(s)))
	for _, ch := range c.chains {
		if ch.Name == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChain, s)
}

// Methods returns payment methods in catalog order.
func (c *Catalog) Methods() []PaymentMethod {
	return append([]PaymentMethod(nil), c.order...)
}

// Method looks up a payment method.
func (c *Catalog) Method(code PaymentMethod) (*Method, bool) {
	m, ok := c.methods[code]
	return m, ok
}

// Chains returns the supported chains in catalog order.
func (c *Catalog) Chains() []ChainInfo {
	return append([]ChainInfo(nil), c.chains...)
}

// ChainID returns the numeric identifier of chain.
func (c *Catalog) ChainID(chain Chain) (int64, bool) {
	for _, ch := range c.chains {
		if ch.Name == chain {
			return ch.ID, true
		}
	}
	return 0, false
}

// ChainByID is the reverse of ChainID.
func (c *Catalog) ChainByID(id int64) (Chain, bool) {
	for _, ch := range c.chains {
		if ch.ID == id {
			return ch.Name, true
		}
	}
	return "", false
}

// TierNames returns the display names of tier indices.
func (c *Catalog) TierNames() []string {
	return append([]string(nil), c.tierNames...)
}

// TierCount is the number of tiers every method carries.
func (c *Catalog) TierCount() int {
	return len(c.methods[MethodETH].Tiers)
}

// Tiers returns the fixed amounts of a method.
func (c *Catalog) Tiers(code PaymentMethod) []float64 {
	m, ok := c.methods[code]
	if !ok {
		return nil
	}
	return append([]float64(nil), m.Tiers...)
}

// TierAmount returns the amount at index for the method.
func (c *Catalog) TierAmount(code PaymentMethod, index int) (float64, bool) {
	m, ok := c.methods[code]
	if !ok || index < 0 || index >= len(m.Tiers) {
		return 0, false
	}
	return m.Tiers[index], true
}

// TokenAddress returns the contract of a token method on chain.
func (c *Catalog) TokenAddress(code PaymentMethod, chain Chain) (string, bool) {
	m, ok := c.methods[code]
	if !ok || m.Token == nil {
		return "", false
	}
	addr, ok := m.Token.Addresses[chain]
	return addr, ok && addr != ""
}

// AvailableChains lists the chains a method can be paid on. Native and fiat
// methods are unrestricted, as is a token deployed nowhere.
func (c *Catalog) AvailableChains(code PaymentMethod) []Chain {
	all := make([]Chain, 0, len(c.chains))
	for _, ch := range c.chains {
		all = append(all, ch.Name)
	}
	m, ok := c.methods[code]
	if !ok || m.Token == nil {
		return all
	}
	available := make([]Chain, 0, len(all))
	for _, ch := range all {
		if addr := m.Token.Addresses[ch]; addr != "" {
			available = append(available, ch)
		}
	}
	if len(available) == 0 {
		return all
	}
	return available
}

// TierIndex finds the tier of amount within a method's fixed tiers.
func (c *Catalog) TierIndex(code PaymentMethod, amount float64) (int, bool) {
	m, ok := c.methods[code]
	if !ok {
		return -1, false
	}
	best, bestDiff := -1, math.Inf(1)
	for i, tier := range m.Tiers {
		if diff := math.Abs(tier - amount); diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best < 0 || bestDiff >= tierMatchEpsilon {
		return -1, false
	}
	return best, true
}

// ConvertMethodAmountToEth maps a catalog tier amount to the ETH tier at the
// same index. Amounts that are not a catalog tier map to 0: only catalog
// tiers carry an ETH equivalent.
func (c *Catalog) ConvertMethodAmountToEth(amount float64, code PaymentMethod) float64 {
	idx, ok := c.TierIndex(code, amount)
	if !ok {
		return 0
	}
	eth, ok := c.TierAmount(MethodETH, idx)
	if !ok {
		return 0
	}
	return eth
}
