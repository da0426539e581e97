package bramble

// Version is the library version, overridable at build time with
// -ldflags "-X github.com/branchwork/bramble.Version=...".
var Version = "0.3.0"
