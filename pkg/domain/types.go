package domain

import "strings"

// Module identifies which business module a dynamic table belongs to.
// Every table name carries its module as a fixed prefix; the module is
// parsed once and handlers branch on the variant, never on raw prefixes.
type Module string

const (
	ModuleInscription Module = "inscription"
	ModuleProvider    Module = "provider"
	ModuleKit         Module = "kit"
	ModulePi          Module = "pi"
	ModuleMaster      Module = "master"
)

// modulePrefixes maps each module to its table-name prefix.
var modulePrefixes = map[Module]string{
	ModuleInscription: "inscription_",
	ModuleProvider:    "provider_",
	ModuleKit:         "kit_",
	ModulePi:          "pi_",
	ModuleMaster:      "master_",
}

// Prefix returns the table-name prefix for the module.
func (m Module) Prefix() string {
	return modulePrefixes[m]
}

// ParseModule resolves a module from its name ("pi", "master", ...).
func ParseModule(name string) (Module, bool) {
	m := Module(strings.ToLower(strings.TrimSpace(name)))
	_, ok := modulePrefixes[m]
	return m, ok
}

// ModuleOfTable resolves the module a table name belongs to.
func ModuleOfTable(table string) (Module, bool) {
	for m, prefix := range modulePrefixes {
		if strings.HasPrefix(table, prefix) {
			return m, true
		}
	}
	return "", false
}

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleStaff   UserRole = "staff"
	RoleManager UserRole = "gestor"
)

// Identity is the decoded caller supplied by the auth gate. The core
// trusts it verbatim for row-level filtering and history attribution.
type Identity struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	Role      UserRole `json:"role"`
	Localidad string   `json:"localidad,omitempty"`
}

// ChangeType enumerates history entry kinds.
type ChangeType string

const (
	ChangeCreate     ChangeType = "create"
	ChangeUpdate     ChangeType = "update"
	ChangeUploadFile ChangeType = "upload_file"
	ChangeDeleteFile ChangeType = "delete_file"
	ChangeAddComment ChangeType = "add_comment"
)

// Record is a row of a dynamic table at the service boundary: a flat
// mapping from column name to value.
type Record = map[string]any

// RelatedValue is one human-readable row of a foreign-key expansion.
type RelatedValue struct {
	ID           any    `json:"id"`
	DisplayValue string `json:"displayValue"`
}
