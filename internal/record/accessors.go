package record

// Field is a read-only view of one extraction field object.
type Field struct {
	obj *Object
}

// Field returns the named top-level field if it is an object.
func (r Record) Field(name string) (Field, bool) {
	v, ok := r.Get(name)
	if !ok {
		return Field{}, false
	}
	obj, ok := v.AsObject()
	if !ok {
		return Field{}, false
	}
	return Field{obj: obj}, true
}

// Attr returns an attribute of the field, or null when absent.
func (f Field) Attr(name string) Value {
	if f.obj == nil {
		return Null()
	}
	v, _ := f.obj.Get(name)
	return v
}

func (f Field) Value() Value { return f.Attr(AttrValue) }

func (f Field) Confidence() float64 {
	c, _ := f.Attr(AttrConfidence).AsFloat()
	return c
}

func (f Field) SourceText() string {
	s, _ := f.Attr(AttrSourceText).AsString()
	return s
}

func (f Field) ManuallyReviewed() bool {
	b, _ := f.Attr(AttrManuallyReviewed).AsBool()
	return b
}

func (f Field) String() string {
	s, _ := f.Value().AsString()
	return s
}

func (f Field) attrString(name string) *string {
	s, ok := f.Attr(name).AsString()
	if !ok {
		return nil
	}
	return &s
}

func (f Field) attrFloat(name string) *float64 {
	n, ok := f.Attr(name).AsFloat()
	if !ok {
		return nil
	}
	return &n
}

func (f Field) attrBool(name string) *bool {
	b, ok := f.Attr(name).AsBool()
	if !ok {
		return nil
	}
	return &b
}

// Party returns the named contract party (vendor, client or any other
// party key).
func (r Record) Party(name string) (Field, bool) {
	parties, ok := r.Field(FieldContractParties)
	if !ok {
		return Field{}, false
	}
	obj, ok := parties.Attr(name).AsObject()
	if !ok {
		return Field{}, false
	}
	return Field{obj: obj}, true
}

func (r Record) Vendor() (Field, bool) { return r.Party("vendor") }
func (r Record) Client() (Field, bool) { return r.Party("client") }

// ContractValue is the total contract amount.
type ContractValue struct {
	Amount     *float64
	Currency   *string
	Confidence float64
}

func (r Record) ContractValue() ContractValue {
	f, _ := r.Field(FieldContractValue)
	return ContractValue{
		Amount:     f.attrFloat(AttrValue),
		Currency:   f.attrString("currency"),
		Confidence: f.Confidence(),
	}
}

// BillingFrequency is how often the contract bills.
type BillingFrequency struct {
	Frequency         *string
	CustomDescription *string
	Confidence        float64
}

func (r Record) BillingFrequency() BillingFrequency {
	f, _ := r.Field(FieldBillingFrequency)
	return BillingFrequency{
		Frequency:         f.attrString(AttrValue),
		CustomDescription: f.attrString("custom_description"),
		Confidence:        f.Confidence(),
	}
}

// PaymentSchedule describes when invoices are due.
type PaymentSchedule struct {
	Terms      *string
	DueDays    *float64
	Confidence float64
}

func (r Record) PaymentSchedule() PaymentSchedule {
	f, _ := r.Field(FieldPaymentSchedule)
	return PaymentSchedule{
		Terms:      f.attrString(AttrValue),
		DueDays:    f.attrFloat("due_days"),
		Confidence: f.Confidence(),
	}
}

// Tier is one usage-based pricing tier.
type Tier struct {
	Name         *string
	MinUnits     *float64
	MaxUnits     *float64
	PricePerUnit *float64
	FlatFee      *float64
	UnitType     *string
}

// UsageTiers returns the pricing tiers, or nil when none were extracted.
func (r Record) UsageTiers() []Tier {
	f, _ := r.Field(FieldUsageTiers)
	items, ok := f.Value().AsList()
	if !ok {
		return nil
	}
	tiers := make([]Tier, 0, len(items))
	for _, item := range items {
		obj, ok := item.AsObject()
		if !ok {
			continue
		}
		t := Field{obj: obj}
		tiers = append(tiers, Tier{
			Name:         t.attrString("tier_name"),
			MinUnits:     t.attrFloat("min_units"),
			MaxUnits:     t.attrFloat("max_units"),
			PricePerUnit: t.attrFloat("price_per_unit"),
			FlatFee:      t.attrFloat("flat_fee"),
			UnitType:     t.attrString("unit_type"),
		})
	}
	return tiers
}

// RenewalClause holds the renewal terms.
type RenewalClause struct {
	AutoRenews             *bool
	RenewalPeriodMonths    *float64
	CancellationNoticeDays *float64
	Confidence             float64
}

func (r Record) RenewalClause() RenewalClause {
	f, _ := r.Field(FieldRenewalClause)
	return RenewalClause{
		AutoRenews:             f.attrBool("auto_renews"),
		RenewalPeriodMonths:    f.attrFloat("renewal_period_months"),
		CancellationNoticeDays: f.attrFloat("cancellation_notice_days"),
		Confidence:             f.Confidence(),
	}
}

// LateFee holds the late payment penalty terms.
type LateFee struct {
	Applies         *bool
	RatePercent     *float64
	GracePeriodDays *float64
	FlatAmount      *float64
	Confidence      float64
}

func (r Record) LateFee() LateFee {
	f, _ := r.Field(FieldLateFee)
	return LateFee{
		Applies:         f.attrBool("applies"),
		RatePercent:     f.attrFloat("rate_percent"),
		GracePeriodDays: f.attrFloat("grace_period_days"),
		FlatAmount:      f.attrFloat("flat_amount"),
		Confidence:      f.Confidence(),
	}
}

func (r Record) StartDate() *string {
	f, _ := r.Field(FieldStartDate)
	return f.attrString(AttrValue)
}

func (r Record) EndDate() *string {
	f, _ := r.Field(FieldEndDate)
	return f.attrString(AttrValue)
}

func (r Record) SpecialTerms() []string {
	f, _ := r.Field(FieldSpecialTerms)
	items, ok := f.Value().AsList()
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.AsString(); ok {
			out = append(out, s)
		}
	}
	return out
}

func (r Record) ExtractionNotes() string {
	v, _ := r.Get(FieldExtractionNotes)
	s, _ := v.AsString()
	return s
}

// PopulatedFields lists the billing fields whose value (or, for fields
// without a value, any attribute besides confidence and source_text) is
// set.
func (r Record) PopulatedFields() []string {
	var out []string
	for _, name := range FieldNames {
		v, ok := r.Get(name)
		if !ok {
			continue
		}
		obj, ok := v.AsObject()
		if !ok {
			if !v.IsNull() {
				out = append(out, name)
			}
			continue
		}
		populated := false
		if obj.Has(AttrValue) {
			val, _ := obj.Get(AttrValue)
			populated = !val.IsNull()
		} else {
			obj.Range(func(k string, val Value) bool {
				if k == AttrConfidence || k == AttrSourceText || k == AttrManuallyReviewed {
					return true
				}
				if inner, ok := val.AsObject(); ok {
					iv, _ := inner.Get(AttrValue)
					populated = !iv.IsNull()
				} else {
					populated = !val.IsNull()
				}
				return !populated
			})
		}
		if populated {
			out = append(out, name)
		}
	}
	return out
}
