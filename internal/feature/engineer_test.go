package feature

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-io/sentra/internal/fraud"
)

type staticFreq map[string]float64

func (s staticFreq) Lookup(key string) float64 {
	if v, ok := s[key]; ok {
		return v
	}
	return 1.0
}

func testEngineer() *Engineer {
	return NewEngineer(
		staticFreq{"fraud_Kirlin and Sons": 1800},
		staticFreq{"grocery_pos": 52000, "misc_net": 31000},
	)
}

func baseTx() *fraud.Transaction {
	lat, long := 40.7128, -74.0060
	mlat, mlong := 40.6892, -74.0445
	return &fraud.Transaction{
		ID:        "tx-001",
		Amount:    127.43,
		Timestamp: "2020-12-22 23:13:39",
		Merchant:  "fraud_Kirlin and Sons",
		Category:  "grocery_pos",
		Lat:       &lat,
		Long:      &long,
		MerchLat:  &mlat,
		MerchLong: &mlong,
		DOB:       "1988-03-09",
		Gender:    "M",
		State:     "NY",
		City:      "New York",
		Zip:       "10001",
		Job:       "Engineer",
		CityPop:   8336817,
	}
}

func TestEngineerDeterministic(t *testing.T) {
	e := testEngineer()
	tx := baseTx()

	a, err := e.Engineer(tx, nil)
	require.NoError(t, err)
	b, err := e.Engineer(tx, nil)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestEngineerTemporal(t *testing.T) {
	e := testEngineer()
	fs, err := e.Engineer(baseTx(), nil)
	require.NoError(t, err)

	// 2020-12-22 is a Tuesday, 23:13 is night and a fraud peak hour.
	assert.Equal(t, 23, fs.Hour)
	assert.Equal(t, 1, fs.DayOfWeek)
	assert.Equal(t, 12, fs.Month)
	assert.False(t, fs.IsWeekend)
	assert.True(t, fs.IsNight)
	assert.False(t, fs.IsBusinessHours)
	assert.True(t, fs.IsFraudPeakHour)
	assert.Equal(t, 0.26, fs.HourRiskScore)
	assert.Equal(t, "evening", fs.TimeOfDay)

	assert.InDelta(t, math.Sin(2*math.Pi*23/24), fs.HourSin, 1e-12)
	assert.InDelta(t, math.Cos(2*math.Pi*23/24), fs.HourCos, 1e-12)
}

func TestEngineerRFC3339Timestamp(t *testing.T) {
	e := testEngineer()
	tx := baseTx()
	tx.Timestamp = "2020-12-22T23:13:39Z"

	fs, err := e.Engineer(tx, nil)
	require.NoError(t, err)
	assert.Equal(t, 23, fs.Hour)
}

func TestEngineerBadTimestamp(t *testing.T) {
	e := testEngineer()
	tx := baseTx()
	tx.Timestamp = "22/12/2020"

	_, err := e.Engineer(tx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fraud.ErrInvalidInput))
}

func TestEngineerAge(t *testing.T) {
	e := testEngineer()
	fs, err := e.Engineer(baseTx(), nil)
	require.NoError(t, err)

	assert.InDelta(t, 32.79, fs.Age, 0.05)
	assert.Equal(t, "25-35", fs.AgeGroup)
}

func TestEngineerMissingDOBDefaultsAge(t *testing.T) {
	e := testEngineer()
	tx := baseTx()
	tx.DOB = ""

	fs, err := e.Engineer(tx, nil)
	require.NoError(t, err)
	assert.Equal(t, assumedAgeYears, fs.Age)
	assert.Equal(t, "25-35", fs.AgeGroup)
}

func TestEngineerHaversine(t *testing.T) {
	// Manhattan to Statue of Liberty, roughly 4.2km.
	d := Haversine(40.7128, -74.0060, 40.6892, -74.0445)
	assert.InDelta(t, 4.2, d, 0.3)

	e := testEngineer()
	fs, err := e.Engineer(baseTx(), nil)
	require.NoError(t, err)
	assert.InDelta(t, d, fs.DistanceKM, 1e-9)
	assert.Equal(t, "very_close", fs.DistanceCat)
	assert.False(t, fs.IsLongDistance)
}

func TestEngineerDistancePassthrough(t *testing.T) {
	e := testEngineer()
	tx := baseTx()
	dist := 5000.0
	tx.DistanceFromHomeKM = &dist

	fs, err := e.Engineer(tx, nil)
	require.NoError(t, err)

	// Reported distance wins over coordinates and is never clipped.
	assert.Equal(t, 5000.0, fs.DistanceKM)
	assert.Equal(t, "very_far", fs.DistanceCat)
	assert.True(t, fs.IsLongDistance)
	assert.True(t, fs.IsDistantTx)
	assert.Equal(t, tx.Amount*5000.0, fs.AmountXDistance)
}

func TestEngineerMissingCoordinates(t *testing.T) {
	e := testEngineer()
	tx := baseTx()
	tx.MerchLat = nil
	tx.MerchLong = nil

	fs, err := e.Engineer(tx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fs.DistanceKM)
	assert.Equal(t, "very_close", fs.DistanceCat)
}

func TestEngineerFinancial(t *testing.T) {
	e := testEngineer()
	tx := baseTx()
	tx.Amount = 500.0

	fs, err := e.Engineer(tx, nil)
	require.NoError(t, err)

	assert.InDelta(t, math.Log1p(500), fs.LogAmount, 1e-12)
	assert.InDelta(t, math.Sqrt(500), fs.SqrtAmount, 1e-12)
	assert.Equal(t, 500.0, fs.AmountRounded)
	assert.Equal(t, "large", fs.AmountTier)
	assert.True(t, fs.IsRoundAmount)
	assert.True(t, fs.IsExactDollar)
	assert.True(t, fs.IsHighRiskAmt)
}

func TestEngineerFrequency(t *testing.T) {
	e := testEngineer()
	fs, err := e.Engineer(baseTx(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1800.0, fs.MerchFreq)
	assert.Equal(t, 52000.0, fs.CatFreq)
	assert.True(t, fs.IsHighRiskCat)

	tx := baseTx()
	tx.Merchant = "fraud_Never Seen Before"
	fs, err = e.Engineer(tx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, fs.MerchFreq)
}

func TestEngineerBenford(t *testing.T) {
	e := testEngineer()
	tx := baseTx()
	tx.Amount = 0.073

	fs, err := e.Engineer(tx, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, fs.FirstDigit)
	assert.InDelta(t, math.Log10(1+1.0/7), fs.BenfordExpected, 1e-12)
	assert.InDelta(t, math.Log(fs.BenfordExpected), fs.BenfordLogProb, 1e-12)
}

func TestEngineerNewCustomerBaseline(t *testing.T) {
	e := testEngineer()
	fs, err := e.Engineer(baseTx(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, fs.CustTxCount)
	assert.Equal(t, defaultDaysSinceLastTx, fs.DaysSinceLastTx)
	assert.Equal(t, baseTx().Amount, fs.CustAvgAmount)
	assert.Equal(t, 0.0, fs.CustStdAmount)
	assert.Equal(t, 0.0, fs.AmountZScore)
}

func TestEngineerZScoreFiniteWithZeroStd(t *testing.T) {
	e := testEngineer()
	tx := baseTx()
	tx.Amount = 1000

	hist := &fraud.CustomerHistory{CustomerID: "c1", AvgAmount: 50, StdAmount: 0, TxCount: 12}
	fs, err := e.Engineer(tx, hist)
	require.NoError(t, err)

	assert.False(t, math.IsInf(fs.AmountZScore, 0))
	assert.False(t, math.IsNaN(fs.AmountZScore))
	assert.Greater(t, fs.AmountZScore, 1000.0)
}

func TestEngineerZScore(t *testing.T) {
	e := testEngineer()
	tx := baseTx()
	tx.Amount = 150

	hist := &fraud.CustomerHistory{CustomerID: "c1", AvgAmount: 100, StdAmount: 25, TxCount: 40}
	fs, err := e.Engineer(tx, hist)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, fs.AmountZScore, 1e-4)
	assert.Equal(t, 40.0, fs.CustTxCount)
}

func TestEngineerColumnSets(t *testing.T) {
	e := testEngineer()
	fs, err := e.Engineer(baseTx(), nil)
	require.NoError(t, err)

	num := fs.Numeric()
	cat := fs.Categorical()
	assert.Len(t, num, 49)
	assert.Len(t, cat, 10)

	for name, v := range num {
		assert.False(t, math.IsNaN(v), "numeric column %s is NaN", name)
		assert.False(t, math.IsInf(v, 0), "numeric column %s is infinite", name)
	}
	for name, v := range cat {
		assert.NotEmpty(t, v, "categorical column %s is empty", name)
	}
}

func TestFirstSignificantDigit(t *testing.T) {
	cases := map[float64]int{
		127.43: 1,
		0.073:  7,
		900:    9,
		0.0001: 1,
	}
	for v, want := range cases {
		assert.Equal(t, want, FirstSignificantDigit(v), "value %v", v)
	}
}
