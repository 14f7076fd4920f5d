package features

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	apperrors "github.com/NhuHoa123/stationery-storefront/pkg/errors"
	"github.com/NhuHoa123/stationery-storefront/services/storefront/internal/domain"
)

type cartTestContext struct {
	cart *domain.Cart
	err  error
}

func (c *cartTestContext) reset() {
	c.cart = nil
	c.err = nil
}

func (c *cartTestContext) anEmptyCart() error {
	c.cart = domain.NewCart("cart-1", "session-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return nil
}

func (c *cartTestContext) add(id, price string, quantity int) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return fmt.Errorf("bad price %q: %w", price, err)
	}
	return c.cart.AddItem(domain.Product{ID: id, Name: "Item " + id, Price: p}, quantity)
}

func (c *cartTestContext) iAddItemPricedWithQuantity(id, price string, quantity int) error {
	return c.add(id, price, quantity)
}

func (c *cartTestContext) iTryToAddItemPricedWithQuantity(id, price string, quantity int) error {
	c.err = c.add(id, price, quantity)
	return nil
}

func (c *cartTestContext) iSetTheQuantityOfItemTo(id string, quantity int) error {
	c.cart.UpdateQuantity(id, quantity)
	return nil
}

func (c *cartTestContext) iRemoveItem(id string) error {
	c.cart.RemoveItem(id)
	return nil
}

func (c *cartTestContext) iClearTheCart() error {
	c.cart.Clear()
	return nil
}

func (c *cartTestContext) iApplyTheseChanges(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue // skip header
		}
		action, id, price := row.Cells[0].Value, row.Cells[1].Value, row.Cells[2].Value
		quantity, err := strconv.Atoi(row.Cells[3].Value)
		if err != nil {
			return fmt.Errorf("row %d: bad quantity: %w", i, err)
		}

		switch action {
		case "add":
			if err := c.add(id, price, quantity); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		case "update":
			c.cart.UpdateQuantity(id, quantity)
		case "remove":
			c.cart.RemoveItem(id)
		default:
			return fmt.Errorf("row %d: unknown action %q", i, action)
		}
	}
	return nil
}

func (c *cartTestContext) iReloadTheCartFromItsSnapshot() error {
	data, err := json.Marshal(c.cart)
	if err != nil {
		return err
	}
	restored := &domain.Cart{}
	if err := json.Unmarshal(data, restored); err != nil {
		return err
	}
	c.cart = restored
	return nil
}

func (c *cartTestContext) theCartHasLines(n int) error {
	if got := c.cart.Len(); got != n {
		return fmt.Errorf("expected %d lines, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) itemHasQuantity(id string, quantity int) error {
	item, ok := c.cart.Item(id)
	if !ok {
		return fmt.Errorf("item %q is not in the cart", id)
	}
	if item.Quantity != quantity {
		return fmt.Errorf("expected item %q quantity %d, got %d", id, quantity, item.Quantity)
	}
	return nil
}

func (c *cartTestContext) itemIsPriced(id, price string) error {
	item, ok := c.cart.Item(id)
	if !ok {
		return fmt.Errorf("item %q is not in the cart", id)
	}
	if got := item.Price.StringFixed(2); got != price {
		return fmt.Errorf("expected item %q priced %s, got %s", id, price, got)
	}
	return nil
}

func (c *cartTestContext) itemIsNotInTheCart(id string) error {
	if _, ok := c.cart.Item(id); ok {
		return fmt.Errorf("expected item %q to be absent", id)
	}
	return nil
}

func (c *cartTestContext) theTotalItemsIs(n int) error {
	if got := c.cart.TotalItems(); got != n {
		return fmt.Errorf("expected total items %d, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) theTotalPriceIs(price string) error {
	if got := c.cart.TotalPrice().StringFixed(2); got != price {
		return fmt.Errorf("expected total price %s, got %s", price, got)
	}
	return nil
}

func (c *cartTestContext) theOperationIsRejected() error {
	if c.err == nil {
		return errors.New("expected the operation to be rejected")
	}
	if !errors.Is(c.err, apperrors.ErrInvalidInput) {
		return fmt.Errorf("expected invalid input, got %v", c.err)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)

	// When steps
	ctx.Step(`^I add item "([^"]*)" priced "([^"]*)" with quantity (-?\d+)$`, tc.iAddItemPricedWithQuantity)
	ctx.Step(`^I try to add item "([^"]*)" priced "([^"]*)" with quantity (-?\d+)$`, tc.iTryToAddItemPricedWithQuantity)
	ctx.Step(`^I set the quantity of item "([^"]*)" to (-?\d+)$`, tc.iSetTheQuantityOfItemTo)
	ctx.Step(`^I remove item "([^"]*)"$`, tc.iRemoveItem)
	ctx.Step(`^I clear the cart$`, tc.iClearTheCart)
	ctx.Step(`^I apply these changes:$`, tc.iApplyTheseChanges)
	ctx.Step(`^I reload the cart from its snapshot$`, tc.iReloadTheCartFromItsSnapshot)

	// Then steps
	ctx.Step(`^the cart has (\d+) lines?$`, tc.theCartHasLines)
	ctx.Step(`^item "([^"]*)" has quantity (-?\d+)$`, tc.itemHasQuantity)
	ctx.Step(`^item "([^"]*)" is priced "([^"]*)"$`, tc.itemIsPriced)
	ctx.Step(`^item "([^"]*)" is not in the cart$`, tc.itemIsNotInTheCart)
	ctx.Step(`^the total items is (\d+)$`, tc.theTotalItemsIs)
	ctx.Step(`^the total price is "([^"]*)"$`, tc.theTotalPriceIs)
	ctx.Step(`^the operation is rejected$`, tc.theOperationIsRejected)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"cart.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
