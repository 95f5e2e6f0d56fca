// Package collapse implements the existence filter and collapser of
// §4.5: dropping hits whose path no longer exists (except the
// ACL-restricted MSIX apps root), then trimming the surviving set down
// to the handful of hits worth showing a user.
package collapse

import (
	"os"
	"strings"
	"unsafe"

	winio "github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"

	"github.com/3leaps/applocate/pkg/apphit"
)

// windowsAppsMarker identifies the one filesystem location §4.5(a)
// exempts from the existence filter: %ProgramFiles%\WindowsApps, whose
// ACL denies ordinary read access to everyone but the package's own
// AppContainer and SYSTEM, so a plain stat reports "access denied"
// rather than "not found" even when the path is perfectly legitimate.
const windowsAppsMarker = "/windowsapps/"

// allAppPackagesSID is the well-known SID ("ALL APPLICATION PACKAGES",
// S-1-15-2-1) Windows grants read access to on a legitimate MSIX
// install root; its presence in the path's DACL is what distinguishes
// "merely ACL-restricted" from "some other access error."
const allAppPackagesSID = "S-1-15-2-1"

// Exists reports whether path should be treated as present for the
// purposes of the existence filter. A path under the MSIX apps root
// that a normal stat cannot read due to ACL restriction is still
// treated as existing when its DACL carries the ALL APPLICATION
// PACKAGES SID, the signature of a legitimate MSIX install directory;
// any other permission error is treated as not-found.
func Exists(path string) bool {
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if !os.IsPermission(err) {
		return false
	}
	if !strings.Contains(strings.ToLower(path), windowsAppsMarker) {
		return false
	}
	return hasAppPackagesACL(path)
}

// hasAppPackagesACL inspects path's DACL via GetNamedSecurityInfo,
// converting it to SDDL with go-winio's SecurityDescriptorToSddl so it
// can be scanned for the ALL APPLICATION PACKAGES SID without a full
// ACE-by-ACE SID comparison.
func hasAppPackagesACL(path string) bool {
	_, _, dacl, _, secDesc, err := windows.GetNamedSecurityInfo(
		path,
		windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION,
	)
	if err != nil || dacl == nil || secDesc == nil {
		return false
	}

	sddl, err := winio.SecurityDescriptorToSddl(secDescBytes(secDesc))
	if err != nil {
		return false
	}
	return strings.Contains(sddl, allAppPackagesSID)
}

// secDescBytes views a self-relative SECURITY_DESCRIPTOR returned by
// GetNamedSecurityInfo as the raw byte slice go-winio's SDDL converter
// expects.
func secDescBytes(sd *windows.SECURITY_DESCRIPTOR) []byte {
	length := sd.Length()
	return unsafe.Slice((*byte)(unsafe.Pointer(sd)), length)
}

// isSyntheticWingetPlaceholder reports whether path is the
// winget://<id> merge-hint form mentioned in §9(d). The winget source
// no longer ever constructs one (see pkg/source/winget), but the
// existence filter still refuses to emit one defensively, since §4.5(b)
// is explicit that such a placeholder "is never emitted."
func isSyntheticWingetPlaceholder(path string) bool {
	return strings.HasPrefix(path, "winget://")
}

// Filter drops hits whose path does not exist, applying the §4.5
// exceptions.
func Filter(hits []*apphit.AppHit) []*apphit.AppHit {
	out := make([]*apphit.AppHit, 0, len(hits))
	for _, h := range hits {
		if isSyntheticWingetPlaceholder(h.Path) {
			continue
		}
		if Exists(h.Path) {
			out = append(out, h)
		}
	}
	return out
}
