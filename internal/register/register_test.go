package register_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-register/internal/register"
)

func TestNewDefaultsNegativeDiscountToZero(t *testing.T) {
	r := register.New(-5)
	require.Equal(t, 0, r.DiscountPercent())
	require.Zero(t, r.Total())
	require.Empty(t, r.Items())
	require.Empty(t, r.Transactions())
}

func TestAddItemAccumulates(t *testing.T) {
	r := register.New(0)
	require.NoError(t, r.AddItem("apple", 3, 3))
	require.NoError(t, r.AddItem("bread", 5, 1))
	require.NoError(t, r.AddItem("milk", 4, 0))

	require.Equal(t, register.Money(3*3+5+4), r.Total())
	require.Equal(t, []string{"apple", "apple", "apple", "bread", "milk"}, r.Items())
	require.Equal(t, []register.Transaction{
		{Item: "apple", UnitPrice: 3, Quantity: 3},
		{Item: "bread", UnitPrice: 5, Quantity: 1},
		{Item: "milk", UnitPrice: 4, Quantity: 1},
	}, r.Transactions())
}

func TestAddItemRejectsInvalidInput(t *testing.T) {
	r := register.New(0)
	cases := []struct {
		name  string
		item  string
		price register.Money
		qty   int
	}{
		{name: "empty item", item: "  ", price: 1, qty: 1},
		{name: "negative quantity", item: "pen", price: 1, qty: -1},
		{name: "negative price", item: "pen", price: -1, qty: 1},
		{name: "subtotal overflow", item: "gold", price: math.MaxInt64/2 + 1, qty: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := r.AddItem(tc.item, tc.price, tc.qty)
			require.True(t, errors.Is(err, register.ErrInvalidInput))
		})
	}
	require.Zero(t, r.Total())
	require.Empty(t, r.Items())
	require.Empty(t, r.Transactions())
}

func TestAddItemRejectsTotalOverflow(t *testing.T) {
	r := register.New(0)
	require.NoError(t, r.AddItem("a", math.MaxInt64, 1))

	err := r.AddItem("b", 1, 1)
	require.ErrorIs(t, err, register.ErrInvalidInput)
	require.Equal(t, register.Money(math.MaxInt64), r.Total())
	require.Equal(t, []string{"a"}, r.Items())
	require.Len(t, r.Transactions(), 1)
}

func TestApplyDiscountWithoutDiscount(t *testing.T) {
	var notices []string
	r := register.New(0)
	r.Notifier = register.NotifierFunc(func(msg string) { notices = append(notices, msg) })
	require.NoError(t, r.AddItem("pen", 7, 2))

	res := r.ApplyDiscount()
	require.False(t, res.Applied)
	require.Equal(t, register.Money(14), res.Total)
	require.Equal(t, register.Money(14), r.Total())
	require.Equal(t, "There is no discount to apply.", res.Message)
	require.Equal(t, []string{"There is no discount to apply."}, notices)
}

func TestApplyDiscountTwentyPercent(t *testing.T) {
	r := register.New(20)
	require.NoError(t, r.AddItem("macbook air", 100, 1))

	res := r.ApplyDiscount()
	require.True(t, res.Applied)
	require.Equal(t, register.Money(80), r.Total())
	require.Equal(t, "After the discount, the total comes to $80.", res.Message)
}

func TestApplyDiscountCompounds(t *testing.T) {
	r := register.New(50)
	require.NoError(t, r.AddItem("lamp", 100, 1))

	require.Equal(t, register.Money(50), r.ApplyDiscount().Total)
	require.Equal(t, register.Money(25), r.ApplyDiscount().Total)
	require.Equal(t, register.Money(25), r.Total())
}

func TestApplyDiscountTruncates(t *testing.T) {
	r := register.New(10)
	require.NoError(t, r.AddItem("gum", 19, 1))

	// 19 - 1.9 = 17.1
	require.Equal(t, register.Money(17), r.ApplyDiscount().Total)
}

func TestVoidLastTransactionOnEmptyRegister(t *testing.T) {
	r := register.New(10)
	tx, ok := r.VoidLastTransaction()
	require.False(t, ok)
	require.Equal(t, register.Transaction{}, tx)
	require.Zero(t, r.Total())
	require.Empty(t, r.Items())
	require.Empty(t, r.Transactions())
}

func TestVoidLastTransactionUndoesAddItem(t *testing.T) {
	r := register.New(0)
	require.NoError(t, r.AddItem("apple", 2, 1))
	beforeTotal := r.Total()
	beforeItems := r.Items()

	require.NoError(t, r.AddItem("tomato", 1, 2))
	tx, ok := r.VoidLastTransaction()
	require.True(t, ok)
	require.Equal(t, register.Transaction{Item: "tomato", UnitPrice: 1, Quantity: 2}, tx)
	require.Equal(t, beforeTotal, r.Total())
	require.Equal(t, beforeItems, r.Items())
	require.Len(t, r.Transactions(), 1)
}

func TestVoidLastTransactionRemovesEarliestOccurrences(t *testing.T) {
	r := register.New(0)
	require.NoError(t, r.AddItem("apple", 1, 1))
	require.NoError(t, r.AddItem("pear", 2, 1))
	require.NoError(t, r.AddItem("apple", 1, 1))

	_, ok := r.VoidLastTransaction()
	require.True(t, ok)
	require.Equal(t, []string{"pear", "apple"}, r.Items())
	require.Equal(t, register.Money(3), r.Total())
}

func TestVoidIsLIFO(t *testing.T) {
	r := register.New(0)
	require.NoError(t, r.AddItem("a", 1, 1))
	require.NoError(t, r.AddItem("b", 10, 1))
	require.NoError(t, r.AddItem("c", 100, 1))

	var voided []string
	for {
		tx, ok := r.VoidLastTransaction()
		if !ok {
			break
		}
		voided = append(voided, tx.Item)
	}
	require.Equal(t, []string{"c", "b", "a"}, voided)
	require.Zero(t, r.Total())
	require.Empty(t, r.Items())
}

func TestCheckoutScenario(t *testing.T) {
	var notices []string
	r := register.New(10)
	r.Notifier = register.NotifierFunc(func(msg string) { notices = append(notices, msg) })

	require.NoError(t, r.AddItem("pen", 2, 3))
	require.Equal(t, register.Money(6), r.Total())
	require.Equal(t, []string{"pen", "pen", "pen"}, r.Items())

	require.NoError(t, r.AddItem("book", 10, 1))
	require.Equal(t, register.Money(16), r.Total())

	res := r.ApplyDiscount()
	require.Equal(t, register.Money(14), res.Total)
	require.Equal(t, []string{"After the discount, the total comes to $14."}, notices)

	// void subtracts from the already discounted total
	_, ok := r.VoidLastTransaction()
	require.True(t, ok)
	require.Equal(t, register.Money(4), r.Total())
	require.Equal(t, []string{"pen", "pen", "pen"}, r.Items())
}

func TestItemsReturnsCopy(t *testing.T) {
	r := register.New(0)
	require.NoError(t, r.AddItem("pen", 1, 1))
	items := r.Items()
	items[0] = "changed"
	require.Equal(t, []string{"pen"}, r.Items())
}
