package feature

// FeatureSet is the full set of engineered features for one transaction,
// as one explicit typed record. Every column the external encoder can ask
// for is a named field here; nothing is carried in loose maps, so a missing
// feature is a compile error at the construction site rather than a silent
// drop at encoding time.
type FeatureSet struct {
	// Raw passthrough
	Amount    float64
	Lat       float64
	Long      float64
	MerchLat  float64
	MerchLong float64
	CityPop   float64

	// Temporal
	Hour            int
	DayOfWeek       int // Monday = 0
	DayOfMonth      int
	Month           int
	Year            int
	IsWeekend       bool
	IsNight         bool
	IsBusinessHours bool
	HourSin         float64
	HourCos         float64
	DayOfWeekSin    float64
	DayOfWeekCos    float64
	MonthSin        float64
	MonthCos        float64
	DayOfMonthSin   float64
	DayOfMonthCos   float64
	TimeOfDay       string // morning / afternoon / evening / night
	IsFraudPeakHour bool
	HourRiskScore   float64

	// Customer age
	Age      float64
	AgeGroup string

	// Geospatial
	DistanceKM     float64
	DistanceCat    string
	IsLongDistance bool
	IsDistantTx    bool

	// Financial
	LogAmount     float64
	SqrtAmount    float64
	AmountRounded float64
	AmountTier    string
	IsRoundAmount bool
	IsExactDollar bool
	IsHighRiskAmt bool

	// Frequency encodings
	Merchant      string
	Category      string
	MerchFreq     float64
	CatFreq       float64
	IsHighRiskCat bool

	// Digit distribution
	FirstDigit      int
	BenfordExpected float64
	BenfordLogProb  float64

	// Behavioral
	CustTxCount     float64
	DaysSinceLastTx float64
	CustAvgAmount   float64
	CustStdAmount   float64
	AmountZScore    float64

	// Demographics (categorical passthrough)
	Gender string
	State  string
	Job    string
	Zip    string

	// Interactions
	AmountXDistance  float64
	AmountXNight     float64
	DistanceXWeekend float64
	AgeXAmount       float64
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Numeric returns the complete numeric column mapping in the encoder's
// vocabulary. Boolean flags are exported as 0/1, matching how the models
// were trained.
func (f *FeatureSet) Numeric() map[string]float64 {
	return map[string]float64{
		"amt":                f.Amount,
		"lat":                f.Lat,
		"long":               f.Long,
		"merch_lat":          f.MerchLat,
		"merch_long":         f.MerchLong,
		"city_pop":           f.CityPop,
		"hour":               float64(f.Hour),
		"day_of_week":        float64(f.DayOfWeek),
		"day_of_month":       float64(f.DayOfMonth),
		"month":              float64(f.Month),
		"year":               float64(f.Year),
		"is_weekend":         boolToFloat(f.IsWeekend),
		"is_night":           boolToFloat(f.IsNight),
		"is_business_hours":  boolToFloat(f.IsBusinessHours),
		"hour_sin":           f.HourSin,
		"hour_cos":           f.HourCos,
		"day_of_week_sin":    f.DayOfWeekSin,
		"day_of_week_cos":    f.DayOfWeekCos,
		"month_sin":          f.MonthSin,
		"month_cos":          f.MonthCos,
		"day_of_month_sin":   f.DayOfMonthSin,
		"day_of_month_cos":   f.DayOfMonthCos,
		"is_fraud_peak_hour": boolToFloat(f.IsFraudPeakHour),
		"hour_risk_score":    f.HourRiskScore,
		"age":                f.Age,
		"distance_km":        f.DistanceKM,
		"is_long_distance":   boolToFloat(f.IsLongDistance),
		"is_distant_tx":      boolToFloat(f.IsDistantTx),
		"log_amt":            f.LogAmount,
		"sqrt_amt":           f.SqrtAmount,
		"amt_rounded":        f.AmountRounded,
		"is_round_amt":       boolToFloat(f.IsRoundAmount),
		"is_exact_dollar":    boolToFloat(f.IsExactDollar),
		"is_high_risk_amt":   boolToFloat(f.IsHighRiskAmt),
		"merch_freq":         f.MerchFreq,
		"cat_freq":           f.CatFreq,
		"is_high_risk_cat":   boolToFloat(f.IsHighRiskCat),
		"first_digit":        float64(f.FirstDigit),
		"benford_expected":   f.BenfordExpected,
		"benford_log_prob":   f.BenfordLogProb,
		"cust_tx_count":      f.CustTxCount,
		"days_since_last_tx": f.DaysSinceLastTx,
		"cust_avg_amt":       f.CustAvgAmount,
		"cust_std_amt":       f.CustStdAmount,
		"amt_z_score":        f.AmountZScore,
		"amt_x_dist":         f.AmountXDistance,
		"amt_x_night":        f.AmountXNight,
		"dist_x_weekend":     f.DistanceXWeekend,
		"age_x_amt":          f.AgeXAmount,
	}
}

// Categorical returns the categorical column mapping. These columns are
// target/frequency encoded by the external encoder and must stay distinct
// from the numeric set.
func (f *FeatureSet) Categorical() map[string]string {
	return map[string]string{
		"merchant":     f.Merchant,
		"category":     f.Category,
		"time_of_day":  f.TimeOfDay,
		"age_group":    f.AgeGroup,
		"distance_cat": f.DistanceCat,
		"amt_tier":     f.AmountTier,
		"gender":       f.Gender,
		"state":        f.State,
		"job":          f.Job,
		"zip":          f.Zip,
	}
}
