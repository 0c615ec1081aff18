package extractor

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ton-buy-tracker/internal/jsontree"
	"ton-buy-tracker/internal/tonapi"
)

func mustParse(t *testing.T, s string) jsontree.Value {
	t.Helper()
	v, err := jsontree.Parse([]byte(s))
	require.NoError(t, err)
	return v
}

func TestScaleJetton(t *testing.T) {
	tests := []struct {
		name string
		in   decimal.Decimal
		want float64
	}{
		{"nano figure", decimal.New(5, 12), 5000},
		{"human figure", decimal.NewFromInt(500), 500},
		{"exactly threshold stays", decimal.New(1, 12), 1e12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ScaleJetton(tt.in).Float64()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_TraceLargestCandidate(t *testing.T) {
	tx := tonapi.Transaction{
		LT:    10,
		Hash:  "abc",
		InMsg: &tonapi.Message{ValueNano: "2500000000", Source: "0:buyer"},
		Raw:   mustParse(t, `{"lt":10}`),
	}
	trace := mustParse(t, `{
		"children":[
			{"Amount":"1000000"},
			{"jetton_transfer":{"jetton_amount":"5000000000000"}},
			{"fee":{"amount":12}}
		],
		"value_usd":"4.20","extra":{"usd":1.5}
	}`)

	res := Extract(tx, trace)
	require.True(t, res.IsBuy())
	require.NotNil(t, res.TONAmount)
	assert.Equal(t, 2.5, *res.TONAmount)
	require.NotNil(t, res.JettonAmount)
	assert.Equal(t, 5000.0, *res.JettonAmount)
	require.NotNil(t, res.USDAmount)
	assert.Equal(t, 4.2, *res.USDAmount)
	assert.Equal(t, "0:buyer", *res.Buyer)
	assert.Equal(t, "abc", *res.TxHash)
}

func TestExtract_FallsBackToRecord(t *testing.T) {
	tx := tonapi.Transaction{
		InMsg: &tonapi.Message{ValueNano: "1000000000"},
		Raw:   mustParse(t, `{"in_msg":{"decoded":{"jettonAmount":500,"total_value_usd":"12.5"}}}`),
	}

	res := Extract(tx, jsontree.NullValue())
	require.NotNil(t, res.JettonAmount)
	assert.Equal(t, 500.0, *res.JettonAmount)
	require.NotNil(t, res.USDAmount)
	assert.Equal(t, 12.5, *res.USDAmount)
	assert.Nil(t, res.Buyer)
	assert.Nil(t, res.TxHash)
}

func TestExtract_RecordIgnoresGenericAmount(t *testing.T) {
	tx := tonapi.Transaction{
		InMsg: &tonapi.Message{ValueNano: "1000000000"},
		Raw:   mustParse(t, `{"amount":999}`),
	}
	res := Extract(tx, jsontree.NullValue())
	assert.Nil(t, res.JettonAmount)
}

func TestExtract_RejectsMalformedNumbers(t *testing.T) {
	trace := mustParse(t, `{"amount":"1.2.3","usd":"-5","value_usd":"abc","jetton_amount":"1e5","x":{"amount":true}}`)
	res := Extract(tonapi.Transaction{}, trace)
	assert.Nil(t, res.JettonAmount)
	assert.Nil(t, res.USDAmount)
	assert.False(t, res.IsBuy())
}

func TestExtract_NotABuy(t *testing.T) {
	res := Extract(tonapi.Transaction{Raw: mustParse(t, `{"lt":1}`)}, jsontree.NullValue())
	assert.False(t, res.IsBuy())
}

func TestTONAmount(t *testing.T) {
	assert.Nil(t, TONAmount(tonapi.Transaction{}))
	assert.Nil(t, TONAmount(tonapi.Transaction{InMsg: &tonapi.Message{ValueNano: "n/a"}}))

	got := TONAmount(tonapi.Transaction{InMsg: &tonapi.Message{ValueNano: "123456789"}})
	require.NotNil(t, got)
	assert.InDelta(t, 0.123456789, *got, 1e-15)
}

func TestLargest_NumericStrings(t *testing.T) {
	root := mustParse(t, `{"a":{"amount":"1."},"b":[{"amount":".5"},{"amount":"  7 "}]}`)
	d, ok := Largest(root, "amount")
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.NewFromInt(7)))
}

func TestExtract_OverflowingFiguresStayUnknown(t *testing.T) {
	huge := strings.Repeat("9", 400)
	tx := tonapi.Transaction{
		InMsg: &tonapi.Message{ValueNano: huge},
		Raw:   mustParse(t, `{"jetton_amount":"`+huge+`"}`),
	}
	trace := mustParse(t, `{"actions":[{"usd":1e400}]}`)

	res := Extract(tx, trace)
	assert.Nil(t, res.TONAmount)
	assert.Nil(t, res.USDAmount)
	assert.Nil(t, res.JettonAmount)
	assert.False(t, res.IsBuy())
}

func TestLargest_SkipsNegative(t *testing.T) {
	root := mustParse(t, `{"a":{"usd":-1e15},"b":{"usd":5}}`)
	d, ok := Largest(root, "usd")
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.NewFromInt(5)))

	_, ok = Largest(mustParse(t, `{"usd":-3}`), "usd")
	assert.False(t, ok)
}
