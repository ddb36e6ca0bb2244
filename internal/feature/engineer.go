// Package feature derives the engineered feature set for a single
// transaction from the raw transaction record and the customer's behavioral
// history. The derivation is deterministic: the same inputs always produce
// the same FeatureSet, and no wall-clock reads happen outside the injected
// reference time used for absent optional fields.
package feature

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/sentra-io/sentra/internal/fraud"
)

// Policy constants of the feature contract. These mirror the values the
// models were trained against and must not drift independently of the
// artifacts.
const (
	// zScoreEpsilon keeps the behavioral z-score finite when a customer's
	// historical std is zero (single prior transaction).
	zScoreEpsilon = 1e-6

	// assumedAgeYears substitutes for a missing date of birth.
	assumedAgeYears = 33.0

	// defaultDaysSinceLastTx is the new-customer default.
	defaultDaysSinceLastTx = 999.0

	earthRadiusKM = 6371.0

	daysPerYear = 365.25
)

// highRiskCategories are the categories with elevated observed fraud rates
// in the training data.
var highRiskCategories = map[string]bool{
	"grocery_pos":   true,
	"shopping_net":  true,
	"gas_transport": true,
}

// fraudPeakHours are the hours with peak observed fraud rates.
var fraudPeakHours = map[int]bool{22: true, 23: true, 0: true, 1: true, 2: true, 3: true}

// timestampLayouts are accepted transaction timestamp formats, tried in order.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// dobLayouts are accepted date-of-birth formats.
var dobLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}

// FrequencyTable resolves a merchant or category string to its historical
// occurrence count, with the table's own fallback for unseen values.
type FrequencyTable interface {
	Lookup(key string) float64
}

// Engineer derives feature sets. Construct once with the loaded frequency
// tables; safe for concurrent use, all state is read-only.
type Engineer struct {
	merchants  FrequencyTable
	categories FrequencyTable
}

// NewEngineer creates a feature engineer backed by the given static
// frequency tables.
func NewEngineer(merchants, categories FrequencyTable) *Engineer {
	return &Engineer{merchants: merchants, categories: categories}
}

// Engineer derives the full feature set for one transaction.
//
// An unparseable timestamp is a hard error: every temporal feature would be
// corrupt, so the transaction is rejected rather than silently defaulted.
// Missing optional fields degrade gracefully with documented defaults.
func (e *Engineer) Engineer(tx *fraud.Transaction, hist *fraud.CustomerHistory) (*FeatureSet, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	ts, err := parseTimestamp(tx.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable timestamp %q", fraud.ErrInvalidInput, tx.Timestamp)
	}

	fs := &FeatureSet{
		Amount:   tx.Amount,
		Merchant: tx.Merchant,
		Category: orUnknown(tx.Category),
		Gender:   defaultString(tx.Gender, "F"),
		State:    orUnknown(tx.State),
		Job:      orUnknown(tx.Job),
		Zip:      defaultString(tx.Zip, "00000"),
		CityPop:  float64(tx.CityPop),
	}
	if tx.Lat != nil {
		fs.Lat = *tx.Lat
	}
	if tx.Long != nil {
		fs.Long = *tx.Long
	}
	if tx.MerchLat != nil {
		fs.MerchLat = *tx.MerchLat
	}
	if tx.MerchLong != nil {
		fs.MerchLong = *tx.MerchLong
	}

	e.temporal(fs, ts)
	e.age(fs, tx, ts)
	e.geospatial(fs, tx)
	e.financial(fs, tx.Amount)
	e.frequency(fs, tx)
	e.digits(fs, tx.Amount)
	e.behavioral(fs, tx, hist)
	e.interactions(fs)

	return fs, nil
}

func (e *Engineer) temporal(fs *FeatureSet, ts time.Time) {
	fs.Hour = ts.Hour()
	fs.DayOfWeek = (int(ts.Weekday()) + 6) % 7 // Monday = 0
	fs.DayOfMonth = ts.Day()
	fs.Month = int(ts.Month())
	fs.Year = ts.Year()

	fs.IsWeekend = fs.DayOfWeek >= 5
	fs.IsNight = fs.Hour >= 23 || fs.Hour <= 6
	fs.IsBusinessHours = fs.Hour >= 9 && fs.Hour <= 17

	fs.HourSin, fs.HourCos = cyclical(float64(fs.Hour), 24)
	fs.DayOfWeekSin, fs.DayOfWeekCos = cyclical(float64(fs.DayOfWeek), 7)
	fs.MonthSin, fs.MonthCos = cyclical(float64(fs.Month), 12)
	fs.DayOfMonthSin, fs.DayOfMonthCos = cyclical(float64(fs.DayOfMonth), 31)

	switch {
	case fs.Hour >= 6 && fs.Hour < 12:
		fs.TimeOfDay = "morning"
	case fs.Hour >= 12 && fs.Hour < 18:
		fs.TimeOfDay = "afternoon"
	case fs.Hour >= 18:
		fs.TimeOfDay = "evening"
	default:
		fs.TimeOfDay = "night"
	}

	fs.IsFraudPeakHour = fraudPeakHours[fs.Hour]
	switch {
	case fs.Hour <= 3:
		fs.HourRiskScore = 0.25
	case fs.Hour >= 22:
		fs.HourRiskScore = 0.26
	default:
		fs.HourRiskScore = 0.01
	}
}

func (e *Engineer) age(fs *FeatureSet, tx *fraud.Transaction, ts time.Time) {
	fs.Age = assumedAgeYears
	if tx.DOB != "" {
		if dob, err := parseDOB(tx.DOB); err == nil {
			fs.Age = ts.Sub(dob).Hours() / 24 / daysPerYear
		}
	}

	switch {
	case fs.Age < 25:
		fs.AgeGroup = "<25"
	case fs.Age < 35:
		fs.AgeGroup = "25-35"
	case fs.Age < 50:
		fs.AgeGroup = "35-50"
	case fs.Age < 65:
		fs.AgeGroup = "50-65"
	default:
		fs.AgeGroup = "65+"
	}
}

func (e *Engineer) geospatial(fs *FeatureSet, tx *fraud.Transaction) {
	switch {
	case tx.DistanceFromHomeKM != nil:
		// Caller-reported distance wins, verbatim. Clipping would hide the
		// exact signal (a 5000km transaction) the detector exists to catch.
		fs.DistanceKM = *tx.DistanceFromHomeKM
	case tx.Lat != nil && tx.Long != nil && tx.MerchLat != nil && tx.MerchLong != nil:
		fs.DistanceKM = Haversine(*tx.Lat, *tx.Long, *tx.MerchLat, *tx.MerchLong)
	default:
		fs.DistanceKM = 0
	}

	switch {
	case fs.DistanceKM <= 5:
		fs.DistanceCat = "very_close"
	case fs.DistanceKM <= 25:
		fs.DistanceCat = "close"
	case fs.DistanceKM <= 100:
		fs.DistanceCat = "medium"
	case fs.DistanceKM <= 500:
		fs.DistanceCat = "far"
	default:
		fs.DistanceCat = "very_far"
	}
	fs.IsLongDistance = fs.DistanceKM > 100
	fs.IsDistantTx = fs.DistanceKM > 80
}

func (e *Engineer) financial(fs *FeatureSet, amt float64) {
	// No clamping anywhere here: a $500,000 transaction must carry its true
	// magnitude through every derived feature.
	fs.LogAmount = math.Log1p(amt)
	fs.SqrtAmount = math.Sqrt(amt)
	fs.AmountRounded = math.Round(amt/10) * 10

	switch {
	case amt <= 10:
		fs.AmountTier = "micro"
	case amt <= 50:
		fs.AmountTier = "small"
	case amt <= 100:
		fs.AmountTier = "medium"
	case amt <= 500:
		fs.AmountTier = "large"
	default:
		fs.AmountTier = "very_large"
	}

	fs.IsRoundAmount = math.Mod(amt, 10) == 0 || math.Mod(amt, 100) == 0
	fs.IsExactDollar = amt == math.Trunc(amt)
	fs.IsHighRiskAmt = fs.LogAmount >= 6 && fs.LogAmount <= 8
}

func (e *Engineer) frequency(fs *FeatureSet, tx *fraud.Transaction) {
	fs.MerchFreq = e.merchants.Lookup(tx.Merchant)
	fs.CatFreq = e.categories.Lookup(fs.Category)
	fs.IsHighRiskCat = highRiskCategories[fs.Category]
}

func (e *Engineer) digits(fs *FeatureSet, amt float64) {
	fs.FirstDigit = FirstSignificantDigit(amt)
	fs.BenfordExpected = BenfordExpected(fs.FirstDigit)
	fs.BenfordLogProb = math.Log(fs.BenfordExpected)
}

func (e *Engineer) behavioral(fs *FeatureSet, tx *fraud.Transaction, hist *fraud.CustomerHistory) {
	if hist == nil || hist.TxCount == 0 {
		// New-customer neutral baseline: the transaction is its own average,
		// so the z-score contributes nothing and nothing downstream divides
		// by zero.
		fs.CustTxCount = 1
		fs.DaysSinceLastTx = defaultDaysSinceLastTx
		fs.CustAvgAmount = tx.Amount
		fs.CustStdAmount = 0
		fs.AmountZScore = 0
		return
	}

	fs.CustTxCount = float64(hist.TxCount)
	fs.DaysSinceLastTx = defaultDaysSinceLastTx
	fs.CustAvgAmount = hist.AvgAmount
	fs.CustStdAmount = hist.StdAmount
	fs.AmountZScore = (tx.Amount - hist.AvgAmount) / (hist.StdAmount + zScoreEpsilon)
}

func (e *Engineer) interactions(fs *FeatureSet) {
	fs.AmountXDistance = fs.Amount * fs.DistanceKM
	fs.AmountXNight = fs.Amount * boolToFloat(fs.IsNight)
	fs.DistanceXWeekend = fs.DistanceKM * boolToFloat(fs.IsWeekend)
	fs.AgeXAmount = fs.Age * fs.Amount
}

// Haversine computes the great-circle distance in kilometers between two
// lat/long pairs.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// FirstSignificantDigit returns the first non-zero decimal digit of v,
// or 1 when v has none.
func FirstSignificantDigit(v float64) int {
	s := strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
	for _, c := range s {
		if c >= '1' && c <= '9' {
			return int(c - '0')
		}
	}
	return 1
}

// BenfordExpected returns Benford's expected probability log10(1 + 1/d)
// for a leading digit d in 1..9.
func BenfordExpected(d int) float64 {
	if d < 1 || d > 9 {
		d = 1
	}
	return math.Log10(1 + 1/float64(d))
}

func cyclical(value, period float64) (sin, cos float64) {
	theta := 2 * math.Pi * value / period
	return math.Sin(theta), math.Cos(theta)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no accepted layout matches %q", s)
}

func parseDOB(s string) (time.Time, error) {
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no accepted layout matches %q", s)
}

func orUnknown(s string) string {
	return defaultString(s, "unknown")
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
