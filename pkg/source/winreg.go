package source

import "golang.org/x/sys/windows/registry"

// RegistryRoot names one of the two registry hives every registry-backed
// source enumerates, paired with the Scope it asserts explicitly.
type RegistryRoot struct {
	Key   registry.Key
	Scope string // "user" or "machine", matched against apphit.Scope by callers
}

// UninstallRoots lists the two hives the Registry Uninstall and App
// Paths sources enumerate: HKLM and HKCU. The WOW6432Node view for
// 32-bit entries is not part of this list; Registry Uninstall walks it
// through its own key paths, and App Paths reads only the native view.
var UninstallRoots = []RegistryRoot{
	{Key: registry.LOCAL_MACHINE, Scope: "machine"},
	{Key: registry.CURRENT_USER, Scope: "user"},
}

// OpenSubkeys lists the immediate subkey names of path under root,
// returning an empty slice (never an error the caller must branch on)
// when the key does not exist or cannot be opened — per §7, a registry
// key open failure is a per-item recoverable condition.
func OpenSubkeys(root registry.Key, path string) []string {
	k, err := registry.OpenKey(root, path, registry.ENUMERATE_SUB_KEYS|registry.READ)
	if err != nil {
		return nil
	}
	defer k.Close()

	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil
	}
	return names
}

// ReadStringValues opens path\name under root and reads the requested
// string values, skipping (not erroring on) any that are absent or of
// the wrong type.
func ReadStringValues(root registry.Key, path string, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	k, err := registry.OpenKey(root, path, registry.QUERY_VALUE)
	if err != nil {
		return out
	}
	defer k.Close()

	for _, name := range names {
		if v, _, err := k.GetStringValue(name); err == nil {
			out[name] = v
		}
	}
	return out
}
