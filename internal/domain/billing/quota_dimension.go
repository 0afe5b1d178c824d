package billing

// QuotaDimension identifies one independently limited resource type.
// Each dimension knows how to read its counter and its limit, so new
// dimensions are added by extending the enum rather than by string
// matching at call sites.
type QuotaDimension string

const (
	DimensionStorage QuotaDimension = "storage"
	DimensionRecords QuotaDimension = "records"
	DimensionAPI     QuotaDimension = "api"
	DimensionEmails  QuotaDimension = "emails"
)

// IsValid returns true if the dimension is a known value
func (d QuotaDimension) IsValid() bool {
	switch d {
	case DimensionStorage, DimensionRecords, DimensionAPI, DimensionEmails:
		return true
	}
	return false
}

// String returns the string representation of the dimension
func (d QuotaDimension) String() string {
	return string(d)
}

// DisplayName returns a human-readable name for denial messages
func (d QuotaDimension) DisplayName() string {
	switch d {
	case DimensionStorage:
		return "storage"
	case DimensionRecords:
		return "database records"
	case DimensionAPI:
		return "API calls per day"
	case DimensionEmails:
		return "emails per month"
	default:
		return string(d)
	}
}

// CounterValue returns the current usage for this dimension
func (d QuotaDimension) CounterValue(counter *UsageCounter) int64 {
	switch d {
	case DimensionStorage:
		return counter.StorageBytes
	case DimensionRecords:
		return counter.DBRecordCount
	case DimensionAPI:
		return counter.APICallsToday
	case DimensionEmails:
		return counter.EmailsThisMonth
	default:
		return 0
	}
}

// LimitValue returns the plan ceiling for this dimension
func (d QuotaDimension) LimitValue(limits *PlanLimit) int64 {
	switch d {
	case DimensionStorage:
		return limits.MaxStorageBytes
	case DimensionRecords:
		return limits.MaxDBRecords
	case DimensionAPI:
		return limits.MaxAPICallsPerDay
	case DimensionEmails:
		return limits.MaxEmailsPerMonth
	default:
		return 0
	}
}
