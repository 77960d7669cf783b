package types

import "time"

// The view types below are the read-model projections returned by the
// admin API. The firstName-falls-back-to-username rule lives here, not
// on the stored entities.

// RequesterView is the requester identity attached to each pending request
type RequesterView struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// PendingRequestView is one pending admin request joined with its requester
type PendingRequestView struct {
	ID         string        `json:"id"`
	Reason     string        `json:"reason"`
	Experience string        `json:"experience"`
	Status     string        `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	User       RequesterView `json:"user"`
}

// UserView is the public profile subset of a user account. Status is
// omitted for legacy accounts that never had the field set.
type UserView struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status,omitempty"`
}

// FileView is the fixed projection of one uploaded spreadsheet record
type FileView struct {
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	UploadedAt time.Time `json:"uploadedAt"`
	Rows       int64     `json:"rows"`
	Columns    int64     `json:"columns"`
}

// ChartView is the fixed projection of one chart record
type ChartView struct {
	ChartType   string                 `json:"chartType"`
	CreatedAt   time.Time              `json:"createdAt"`
	FromFile    string                 `json:"fromExcelFile"`
	ChartConfig map[string]interface{} `json:"chartConfig"`
}

// NewRequesterView projects a user into the requester identity shape
func NewRequesterView(u *User) RequesterView {
	return RequesterView{
		ID:        u.ID.Hex(),
		FirstName: displayFirstName(u),
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// NewUserView projects a user into its public profile subset
func NewUserView(u *User) UserView {
	return UserView{
		ID:        u.ID.Hex(),
		FirstName: displayFirstName(u),
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
	}
}

// NewFileView projects an uploaded spreadsheet record
func NewFileView(r ExcelRecord) FileView {
	return FileView{
		FileName:   r.Filename,
		FileSize:   r.Filesize,
		UploadedAt: r.UploadedAt,
		Rows:       r.Rows,
		Columns:    r.Columns,
	}
}

// NewChartView projects a chart record
func NewChartView(r ChartRecord) ChartView {
	return ChartView{
		ChartType:   r.ChartType,
		CreatedAt:   r.CreatedAt,
		FromFile:    r.FromExcelFile,
		ChartConfig: r.ChartConfig,
	}
}

// Accounts imported before profile completion have no first name;
// the username stands in for display purposes
func displayFirstName(u *User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}
