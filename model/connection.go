package model

// ConnectionType discriminates the Connection variants.
type ConnectionType string

const (
	ConnectionPostgres ConnectionType = "postgres"
	ConnectionMySQL    ConnectionType = "mysql"
	ConnectionHTTP     ConnectionType = "http"
	ConnectionSMTP     ConnectionType = "smtp"
)

// Connection is a declared external system. Credentials are kept out of the
// JSON form.
type Connection struct {
	Name    string            `json:"name"`
	Type    ConnectionType    `json:"type"`
	Variant ConnectionVariant `json:"-"`
}

type connectionCommon Connection

// MarshalJSON flattens the variant payload into the connection object.
func (c Connection) MarshalJSON() ([]byte, error) {
	return marshalFlat(connectionCommon(c), c.Variant)
}

// ConnectionVariant is implemented by every connection payload type.
type ConnectionVariant interface {
	connectionVariant()
}

// DatabaseConnection backs postgres and mysql. DSN is the connection string
// as declared; the other fields are parsed from it.
type DatabaseConnection struct {
	DSN      string `json:"-"`
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
	User     string `json:"user,omitempty"`
}

type HTTPConnection struct {
	BaseURL string            `json:"baseUrl"`
	Headers map[string]string `json:"-"`
}

type SMTPConnection struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	From     string `json:"from,omitempty"`
}

func (*DatabaseConnection) connectionVariant() {}
func (*HTTPConnection) connectionVariant()     {}
func (*SMTPConnection) connectionVariant()     {}
