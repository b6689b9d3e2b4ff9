package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecimal_UnmarshalNumberStringAndNull(t *testing.T) {
	var p struct {
		A Decimal `json:"a"`
		B Decimal `json:"b"`
		C Decimal `json:"c"`
		D Decimal `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":10.50,"b":"3.25","c":null}`), &p))

	require.True(t, p.A.Valid())
	require.Equal(t, "10.50", p.A.String())
	require.Equal(t, "3.25", p.B.String())
	require.False(t, p.C.Valid())
	require.False(t, p.D.Valid())
}

func TestDecimal_MarshalKeepsPrecision(t *testing.T) {
	b, err := json.Marshal(struct {
		Cost Decimal `json:"cost"`
		Miss Decimal `json:"miss"`
	}{Cost: MustDecimal("1234567890.12345")})
	require.NoError(t, err)
	require.JSONEq(t, `{"cost":1234567890.12345,"miss":null}`, string(b))
}

func TestDecimal_CmpIsNumeric(t *testing.T) {
	require.Equal(t, 0, MustDecimal("10").Cmp(MustDecimal("10.00")))
	require.Equal(t, -1, MustDecimal("9.99").Cmp(MustDecimal("10")))
	require.Equal(t, -1, Decimal{}.Cmp(MustDecimal("0")))
}

func TestDecimal_ValueAndScan(t *testing.T) {
	v, err := MustDecimal("450.00").Value()
	require.NoError(t, err)
	require.Equal(t, "450.00", v)

	v, err = Decimal{}.Value()
	require.NoError(t, err)
	require.Nil(t, v)

	var d Decimal
	require.NoError(t, d.Scan(int64(12)))
	require.Equal(t, "12", d.String())
	require.NoError(t, d.Scan([]byte("7.5")))
	require.Equal(t, 0, d.Cmp(MustDecimal("7.50")))
	require.NoError(t, d.Scan(nil))
	require.False(t, d.Valid())
	require.Error(t, d.Scan(true))
}

func TestDecimal_Mul(t *testing.T) {
	require.Equal(t, 0, MustDecimal("2.5").Mul(NewDecimalFromInt64(3)).Cmp(MustDecimal("7.5")))
	require.False(t, Decimal{}.Mul(MustDecimal("1")).Valid())
}

func TestDecimal_Add(t *testing.T) {
	require.Equal(t, "10.25", MustDecimal("7.5").Add(MustDecimal("2.75")).String())
	require.Equal(t, "3", Decimal{}.Add(NewDecimalFromInt64(3)).String())
	require.False(t, Decimal{}.Add(Decimal{}).Valid())
}

func TestNewDecimal_RejectsNonFinite(t *testing.T) {
	for _, s := range []string{"NaN", "Infinity", "-Inf", "sNaN"} {
		_, err := NewDecimal(s)
		require.Error(t, err, s)
	}
}

func TestDecimal_CheckMoney(t *testing.T) {
	require.NoError(t, Decimal{}.CheckMoney())
	require.NoError(t, MustDecimal("99999999999999.99999").CheckMoney())
	require.NoError(t, MustDecimal("-99999999999999.99999").CheckMoney())
	require.ErrorIs(t, MustDecimal("100000000000000").CheckMoney(), ErrMoneyRange)
	require.ErrorIs(t, MustDecimal("1e400").CheckMoney(), ErrMoneyRange)
	require.ErrorIs(t, MustDecimal("-123456789012345678901234").CheckMoney(), ErrMoneyRange)
}
