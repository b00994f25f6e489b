package entities

// UserInfo is a buyer, unique by email.
type UserInfo struct {
	ID            int64   `json:"id"             db:"id"`
	FirstName     *string `json:"first_name"     db:"first_name"`
	LastName      *string `json:"last_name"      db:"last_name"`
	CompanyName   *string `json:"company_name"   db:"company_name"`
	Country       *string `json:"country"        db:"country"`
	StreetAddress *string `json:"street_address" db:"street_address"`
	City          string  `json:"city"           db:"city"`
	County        *string `json:"county"         db:"county"`
	Postcode      *string `json:"postcode"       db:"postcode"`
	Phone         *string `json:"phone"          db:"phone"`
	Email         string  `json:"email"          db:"email"`
}

// UserInfoPatch carries only the fields supplied by the buyer; nil means untouched.
type UserInfoPatch struct {
	FirstName     *string
	LastName      *string
	CompanyName   *string
	Country       *string
	StreetAddress *string
	City          *string
	County        *string
	Postcode      *string
	Phone         *string
}

// Columns returns the supplied fields keyed by column name.
func (p UserInfoPatch) Columns() map[string]any {
	columns := make(map[string]any)
	set := func(name string, v *string) {
		if v != nil {
			columns[name] = *v
		}
	}

	set("first_name", p.FirstName)
	set("last_name", p.LastName)
	set("company_name", p.CompanyName)
	set("country", p.Country)
	set("street_address", p.StreetAddress)
	set("city", p.City)
	set("county", p.County)
	set("postcode", p.Postcode)
	set("phone", p.Phone)

	return columns
}
