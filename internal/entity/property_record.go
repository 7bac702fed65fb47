package entity

// PropertyRecord is one row of the reference registry. Every field is optional.
type PropertyRecord struct {
	RecordID      string            `json:"record_id"`
	CertificateNo string            `json:"certificate_no,omitempty"`
	OwnerName     string            `json:"owner_name,omitempty"`
	Address       string            `json:"address,omitempty"`
	UnitNo        string            `json:"unit_no,omitempty"`
	IDNumber      string            `json:"id_number,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// Column returns the value stored under a registry column name.
func (r *PropertyRecord) Column(name string) string {
	switch name {
	case "record_id":
		return r.RecordID
	case "certificate_no":
		return r.CertificateNo
	case "owner_name":
		return r.OwnerName
	case "address":
		return r.Address
	case "unit_no":
		return r.UnitNo
	case "id_number":
		return r.IDNumber
	default:
		return r.Extra[name]
	}
}
