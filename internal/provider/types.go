package provider

import "strconv"

// TaskStatus is the normalized terminal/non-terminal state of an
// asynchronous provider task.
type TaskStatus string

const (
	TaskCompleted TaskStatus = "completed"
	TaskSuccess   TaskStatus = "success"
	TaskFailed    TaskStatus = "failed"
	TaskError     TaskStatus = "error"
	TaskOther     TaskStatus = "other"
)

// Terminal reports whether the status represents a finished task (success
// or failure), as opposed to still-pending work.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskSuccess, TaskFailed, TaskError:
		return true
	default:
		return false
	}
}

// Failed reports whether the status represents a failed task.
func (s TaskStatus) Failed() bool {
	return s == TaskFailed || s == TaskError
}

// SyncOrTask is the result of UpdateDatabase: either a synchronous 200
// success or a 202-accepted task handle.
type SyncOrTask struct {
	Synchronous bool
	TaskID      string
}

// wire shapes returned by the Redis Cloud-style management API.

type subscriptionsResponse struct {
	Subscriptions []wireSubscription `json:"subscriptions"`
}

type wireSubscription struct {
	ID            interface{}      `json:"id"`
	Name          string           `json:"name"`
	CloudProvider string           `json:"provider"`
	Pricing       []wirePricingRow `json:"pricing"`
}

type wirePricingRow struct {
	Type         string  `json:"type"`
	TypeDetails  string  `json:"typeDetails"`
	Quantity     int     `json:"quantity"`
	PricePerUnit float64 `json:"pricePerUnit"`
}

type databasesResponse struct {
	Subscription []struct {
		Databases []wireDatabase `json:"databases"`
	} `json:"subscription"`
}

type wireDatabase struct {
	DatabaseID      interface{}      `json:"databaseId"`
	ID              interface{}      `json:"id"`
	Name            string           `json:"name"`
	Region          string           `json:"region"`
	Status          string           `json:"status"`
	DBStatus        string           `json:"db_status"`
	MemoryLimitInGB float64          `json:"memoryLimitInGb"`
	DatasetSizeInGB float64          `json:"datasetSizeInGb"`
	ThroughputMeas  []wireThroughput `json:"throughputMeasurement"`
	ShardsCount     int              `json:"shardsCount"`
	Replication     bool             `json:"replication"`
	PrivateEndpoint string           `json:"privateEndpoint"`
	Cluster         string           `json:"cluster"`
	CrdbDatabases   []interface{}    `json:"crdbDatabases"`
}

type wireThroughput struct {
	By    string `json:"by"`
	Value int64  `json:"value"`
}

// resolvedID normalizes the historical databaseId/id field-name ambiguity.
func (d wireDatabase) resolvedID() string {
	if d.DatabaseID != nil {
		return stringify(d.DatabaseID)
	}
	return stringify(d.ID)
}

func (d wireDatabase) resolvedStatus() string {
	if d.Status != "" {
		return d.Status
	}
	return d.DBStatus
}

func (d wireDatabase) throughputLimit() float64 {
	if len(d.ThroughputMeas) == 0 {
		return 0
	}
	return float64(d.ThroughputMeas[0].Value)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
