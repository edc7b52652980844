package logg

// Field keys shared by every component logger.
const (
	Layer     = "layer"
	Operation = "op"
	SessionID = "session_id"
	Profile   = "profile"
	Tool      = "tool"
	TabID     = "tab_id"
	URL       = "url"
	Selector  = "selector"
	Address   = "address"
	Backend   = "backend"
)
