package user

// Command is an inbound request for one action on the users resource.
// The set of implementations is closed: CreateCommand, GetCommand,
// ListCommand, UpdateCommand and DeleteCommand.
type Command interface {
	// Action names the command for logs and metrics.
	Action() string
	isCommand()
}

// CreateCommand creates a user.
type CreateCommand struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

// GetCommand fetches one user by id.
type GetCommand struct {
	ID int64 `json:"id"`
}

// ListCommand lists users. Nil fields fall back to defaults.
type ListCommand struct {
	Limit     *int64     `json:"limit"`
	Offset    *int64     `json:"offset"`
	SortBy    *UserField `json:"sort_by"`
	SortOrder *SortOrder `json:"sort_order"`
}

// UpdateCommand changes any subset of a user's mutable fields.
// A nil field is left unchanged.
type UpdateCommand struct {
	ID    int64   `json:"id"`
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// FieldValue pairs a field with its requested new value.
type FieldValue struct {
	Field UserField
	Value *string
}

// Fields returns the candidate assignments in column order.
func (c UpdateCommand) Fields() []FieldValue {
	return []FieldValue{
		{Field: FieldName, Value: c.Name},
		{Field: FieldEmail, Value: c.Email},
	}
}

// DeleteCommand removes a user by id.
type DeleteCommand struct {
	ID int64 `json:"id"`
}

func (CreateCommand) Action() string { return "create" }
func (GetCommand) Action() string    { return "get" }
func (ListCommand) Action() string   { return "list" }
func (UpdateCommand) Action() string { return "update" }
func (DeleteCommand) Action() string { return "delete" }

func (CreateCommand) isCommand() {}
func (GetCommand) isCommand()    {}
func (ListCommand) isCommand()   {}
func (UpdateCommand) isCommand() {}
func (DeleteCommand) isCommand() {}
