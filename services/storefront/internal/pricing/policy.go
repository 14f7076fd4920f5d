// Package pricing turns a cart subtotal into the checkout summary: shipping,
// tax and grand total.
package pricing

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/diegoholiveira/jsonlogic/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var embedded []byte

// Policy holds the tax and shipping rules applied at checkout.
type Policy struct {
	Currency    string
	TaxRate     decimal.Decimal
	ShippingFee decimal.Decimal

	freeShippingRule []byte
}

// Quote is the price breakdown for one cart.
type Quote struct {
	Subtotal     decimal.Decimal
	Shipping     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	Currency     string
	ItemCount    int
	FreeShipping bool
}

type policyFile struct {
	Currency         string         `yaml:"currency"`
	TaxRate          string         `yaml:"tax_rate"`
	ShippingFee      string         `yaml:"shipping_fee"`
	FreeShippingRule map[string]any `yaml:"free_shipping_rule"`
}

// Load reads the policy from path, or the built-in policy when path is empty.
func Load(path string) (*Policy, error) {
	if path == "" {
		return Parse(embedded)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing policy %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Policy from YAML. A missing free_shipping_rule means
// shipping is always charged.
func Parse(data []byte) (*Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pricing policy: %w", err)
	}

	rate, err := decimal.NewFromString(f.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("parse pricing policy: tax_rate %q: %w", f.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("parse pricing policy: tax_rate %s outside [0,1]", rate)
	}

	fee, err := decimal.NewFromString(f.ShippingFee)
	if err != nil {
		return nil, fmt.Errorf("parse pricing policy: shipping_fee %q: %w", f.ShippingFee, err)
	}
	if fee.IsNegative() {
		return nil, fmt.Errorf("parse pricing policy: negative shipping_fee")
	}

	p := &Policy{Currency: f.Currency, TaxRate: rate, ShippingFee: fee}
	if p.Currency == "" {
		p.Currency = "USD"
	}

	if len(f.FreeShippingRule) > 0 {
		rule, err := json.Marshal(f.FreeShippingRule)
		if err != nil {
			return nil, fmt.Errorf("parse pricing policy: encode free_shipping_rule: %w", err)
		}
		if !jsonlogic.IsValid(bytes.NewReader(rule)) {
			return nil, fmt.Errorf("parse pricing policy: free_shipping_rule is not valid json-logic")
		}
		p.freeShippingRule = rule
	}

	return p, nil
}

// Quote prices a cart with the given subtotal and total quantity. An empty
// cart quotes zero for every amount.
func (p *Policy) Quote(subtotal decimal.Decimal, itemCount int) (Quote, error) {
	q := Quote{
		Subtotal:  subtotal,
		Shipping:  decimal.Zero,
		Tax:       decimal.Zero,
		Total:     decimal.Zero,
		Currency:  p.Currency,
		ItemCount: itemCount,
	}
	if itemCount <= 0 {
		q.Subtotal = decimal.Zero
		return q, nil
	}

	free, err := p.freeShipping(subtotal, itemCount)
	if err != nil {
		return Quote{}, err
	}
	q.FreeShipping = free
	if !free {
		q.Shipping = p.ShippingFee
	}

	q.Tax = subtotal.Mul(p.TaxRate).Round(2)
	q.Total = subtotal.Add(q.Shipping).Add(q.Tax)
	return q, nil
}

func (p *Policy) freeShipping(subtotal decimal.Decimal, itemCount int) (bool, error) {
	if p.freeShippingRule == nil {
		return false, nil
	}

	data, err := json.Marshal(map[string]any{
		"subtotal":   subtotal.InexactFloat64(),
		"item_count": itemCount,
	})
	if err != nil {
		return false, fmt.Errorf("encode shipping rule data: %w", err)
	}

	var out bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(p.freeShippingRule), bytes.NewReader(data), &out); err != nil {
		return false, fmt.Errorf("evaluate free shipping rule: %w", err)
	}

	var result any
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		return false, fmt.Errorf("decode free shipping result: %w", err)
	}
	free, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("free shipping rule returned %v, want a boolean", result)
	}
	return free, nil
}
