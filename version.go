package siteloom

// BinaryGitHash is the Git hash of the siteloom binary which is executing,
// overridable at link time with -ldflags "-X github.com/kjhansen/siteloom.BinaryGitHash=...".
var BinaryGitHash = "<unknown>"

// BinaryVersion is siteloom's API version.
const BinaryVersion = 1
