package archiver

import (
	"github.com/jmgilman/go/archive/errors"
)

// Validator checks archive members before they are extracted.
type Validator interface {
	// ValidateFile checks a single member.
	ValidateFile(info FileInfo) error

	// ValidateArchive checks the running totals after each member.
	ValidateArchive(stats ArchiveStats) error
}

// FileInfo is the member metadata validators see.
type FileInfo struct {
	Name string
	Size int64
	Mode int64
}

// ArchiveStats are the running totals of an extraction.
type ArchiveStats struct {
	TotalFiles int
	TotalSize  int64
}

func securityViolation(msg string, ctx map[string]interface{}) error {
	return errors.WithContextMap(errors.New(errors.CodeSecurityViolation, msg), ctx)
}

// SizeValidator enforces per-file and total payload limits. A zero limit
// is disabled.
type SizeValidator struct {
	MaxFileSize  int64
	MaxTotalSize int64
}

// NewSizeValidator returns a SizeValidator with the given limits.
func NewSizeValidator(maxFileSize, maxTotalSize int64) *SizeValidator {
	return &SizeValidator{MaxFileSize: maxFileSize, MaxTotalSize: maxTotalSize}
}

// ValidateFile rejects members larger than MaxFileSize.
func (v *SizeValidator) ValidateFile(info FileInfo) error {
	if v.MaxFileSize > 0 && info.Size > v.MaxFileSize {
		return securityViolation("file exceeds size limit",
			map[string]interface{}{"path": info.Name, "size": info.Size, "limit": v.MaxFileSize})
	}
	return nil
}

// ValidateArchive rejects archives whose payloads exceed MaxTotalSize.
func (v *SizeValidator) ValidateArchive(stats ArchiveStats) error {
	if v.MaxTotalSize > 0 && stats.TotalSize > v.MaxTotalSize {
		return securityViolation("archive exceeds total size limit",
			map[string]interface{}{"size": stats.TotalSize, "limit": v.MaxTotalSize})
	}
	return nil
}

// FileCountValidator bounds the number of members.
type FileCountValidator struct {
	MaxFiles int
}

// NewFileCountValidator returns a FileCountValidator.
func NewFileCountValidator(maxFiles int) *FileCountValidator {
	return &FileCountValidator{MaxFiles: maxFiles}
}

// ValidateFile is a no-op.
func (v *FileCountValidator) ValidateFile(FileInfo) error {
	return nil
}

// ValidateArchive rejects archives with more than MaxFiles members.
func (v *FileCountValidator) ValidateArchive(stats ArchiveStats) error {
	if v.MaxFiles > 0 && stats.TotalFiles > v.MaxFiles {
		return securityViolation("archive exceeds file count limit",
			map[string]interface{}{"files": stats.TotalFiles, "limit": v.MaxFiles})
	}
	return nil
}

// PermissionSanitizer rejects setuid and setgid members.
type PermissionSanitizer struct{}

// NewPermissionSanitizer returns a PermissionSanitizer.
func NewPermissionSanitizer() *PermissionSanitizer {
	return &PermissionSanitizer{}
}

// ValidateFile rejects members carrying setuid or setgid bits.
func (v *PermissionSanitizer) ValidateFile(info FileInfo) error {
	if info.Mode&0o6000 != 0 {
		return securityViolation("setuid or setgid bit set",
			map[string]interface{}{"path": info.Name, "mode": info.Mode})
	}
	return nil
}

// ValidateArchive is a no-op.
func (v *PermissionSanitizer) ValidateArchive(ArchiveStats) error {
	return nil
}

// SanitizePermissions clears setuid, setgid and sticky bits.
func SanitizePermissions(mode int64) int64 {
	return mode & 0o777
}

// ValidatorChain runs validators in order and stops at the first failure.
type ValidatorChain struct {
	validators []Validator
}

// NewValidatorChain returns a chain of validators.
func NewValidatorChain(validators ...Validator) *ValidatorChain {
	return &ValidatorChain{validators: validators}
}

// Add appends a validator.
func (vc *ValidatorChain) Add(v Validator) {
	vc.validators = append(vc.validators, v)
}

// ValidateFile runs every ValidateFile.
func (vc *ValidatorChain) ValidateFile(info FileInfo) error {
	for _, v := range vc.validators {
		if err := v.ValidateFile(info); err != nil {
			return err
		}
	}
	return nil
}

// ValidateArchive runs every ValidateArchive.
func (vc *ValidatorChain) ValidateArchive(stats ArchiveStats) error {
	for _, v := range vc.validators {
		if err := v.ValidateArchive(stats); err != nil {
			return err
		}
	}
	return nil
}
