package models

// LeafSeparator joins unit and sub-unit ids into a leaf id.
const LeafSeparator = "/"

// SubUnit is the smallest curriculum node a student can mark complete.
type SubUnit struct {
	ID    string `json:"id" mapstructure:"id"`
	Title string `json:"title" mapstructure:"title"`
}

// Unit groups sub-units in catalog order.
type Unit struct {
	ID          string    `json:"id" mapstructure:"id"`
	Title       string    `json:"title" mapstructure:"title"`
	Description string    `json:"description,omitempty" mapstructure:"description"`
	SubUnits    []SubUnit `json:"sub_units" mapstructure:"sub_units"`
}

// LeafID returns the completion key for one of the unit's sub-units.
func (u Unit) LeafID(sub SubUnit) string {
	return u.ID + LeafSeparator + sub.ID
}
