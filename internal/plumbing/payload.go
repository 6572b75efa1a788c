package plumbing

// PayloadOutput selects how a request body is handed to the handler
type PayloadOutput string

const (
	// OutputData buffers the body in memory
	OutputData PayloadOutput = "data"
	// OutputStream leaves the body as a stream
	OutputStream PayloadOutput = "stream"
	// OutputFile writes the body to a temporary file
	OutputFile PayloadOutput = "file"
)

// DefaultUploadMaxBytes is the body ceiling applied to create and update
// blueprint actions (20 MiB)
const DefaultUploadMaxBytes int64 = 20971520

// Payload is a per-route request body policy
type Payload struct {
	MaxBytes int64         `mapstructure:"maxBytes" json:"maxBytes,omitempty"`
	Output   PayloadOutput `mapstructure:"output" json:"output,omitempty"`
	Parse    bool          `mapstructure:"parse" json:"parse"`
}

// DefaultPayload returns the payload policy applied to a blueprint action
// that declares none, or nil when the action has no default
func DefaultPayload(action string) *Payload {
	switch action {
	case "create", "update":
		return &Payload{
			MaxBytes: DefaultUploadMaxBytes,
			Output:   OutputFile,
			Parse:    true,
		}
	default:
		return nil
	}
}
