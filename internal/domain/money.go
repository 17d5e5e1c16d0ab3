package domain

import (
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyCode é a única moeda do ledger.
const CurrencyCode = "GPI"

// AmountScale é a quantidade de casas decimais de toda quantia (1 centavo = unidade mínima).
const AmountScale = 2

// MinimumAmount é o menor valor aceito numa transferência.
var MinimumAmount = decimal.New(100, -AmountScale)

func init() {
	money.AddCurrency(CurrencyCode, CurrencyCode, "1 $", ".", ",", AmountScale)
}

// MaxAmountLength limita o texto de uma quantia; nenhum saldo real passa disso.
const MaxAmountLength = 32

// plainDecimal aceita só notação decimal simples. Notação científica (1e10000000)
// faria o arredondamento expandir um inteiro de milhões de dígitos.
var plainDecimal = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)

// ParseDecimal lê uma quantia em notação decimal simples, sem checar escala nem sinal.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > MaxAmountLength || !plainDecimal.MatchString(raw) {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// IsWholeCents diz se d não tem fração abaixo de 1 centavo.
func IsWholeCents(d decimal.Decimal) bool {
	return d.RoundBank(AmountScale).Equal(d)
}

// ParseAmount aplica os três primeiros passos da validação de transferência:
// número válido, no máximo 2 casas (arredondamento bancário não pode alterar o valor)
// e valor mínimo de 1.00.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := ParseDecimal(raw)
	if err != nil {
		return decimal.Zero, err
	}

	if !IsWholeCents(amount) {
		return decimal.Zero, ErrInvalidPrecision
	}
	quantized := amount.RoundBank(AmountScale)

	if quantized.LessThan(MinimumAmount) {
		return decimal.Zero, ErrBelowMinimum
	}
	return quantized, nil
}

// ToCents converte para unidades mínimas (formato usado no Postgres).
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(AmountScale).IntPart()
}

// FromCents é o inverso de ToCents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -AmountScale)
}

// FormatAmount formata para exibição, ex: "1,250.00 GPI".
func FormatAmount(d decimal.Decimal) string {
	return money.New(ToCents(d), CurrencyCode).Display()
}
