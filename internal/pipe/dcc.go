package pipe

// extnToDCC maps scene-file extensions to the DCC that authors them.
var extnToDCC = map[string]string{
	"blend": "blender",
	"c4d":   "c4d",
	"hip":   "hou",
	"hiplc": "hou",
	"nk":    "nuke",
	"nknc":  "nuke",
	"ma":    "maya",
	"mb":    "maya",
	"spp":   "substance",
	"tgd":   "terragen",
}

// dccToExtn is the preferred scene extension per DCC.
var dccToExtn = map[string]string{
	"blender":   "blend",
	"c4d":       "c4d",
	"hou":       "hip",
	"nuke":      "nk",
	"maya":      "ma",
	"substance": "spp",
	"terragen":  "tgd",
}

// DCCFromExtn returns the DCC name for a scene extension, or "" when the
// extension is not a known scene format.
func DCCFromExtn(extn string) string {
	return extnToDCC[extn]
}

// ExtnFromDCC returns the preferred scene extension for a DCC.
func ExtnFromDCC(dcc string) string {
	return dccToExtn[dcc]
}

// videoExtns are containers treated as video outputs.
var videoExtns = map[string]struct{}{
	"mp4": {},
	"mov": {},
}

// IsVideoExtn reports whether extn denotes a video container.
func IsVideoExtn(extn string) bool {
	_, ok := videoExtns[extn]
	return ok
}
