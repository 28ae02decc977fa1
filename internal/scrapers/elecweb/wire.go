package elecweb

import "strings"

// DefaultBaseUrl is the dormitory metering wizard as exposed through the campus webvpn gateway.
const DefaultBaseUrl = "https://webvpn.ujs.edu.cn/http/77726476706e69737468656265737421f8e6429b3e296c1e6b029ae29d51367b6885/"

const (
	fieldViewState       = "__VIEWSTATE"
	fieldEventValidation = "__EVENTVALIDATION"
	fieldEventTarget     = "__EVENTTARGET"
	fieldEventArgument   = "__EVENTARGUMENT"

	controlCampus    = "ddlXiaoQu"
	controlCommunity = "ddlQuYu"
	controlBuilding  = "ddlLouDong"
	controlRoom      = "ddlFangJian"
	fieldPassword    = "txtStuPwd"
	fieldEnterX      = "btnEnter.x"
	fieldEnterY      = "btnEnter.y"

	fieldYear        = "ddlYear"
	fieldMonth       = "ddlMonth"
	fieldSelect      = "btnSelect"
	selectButtonText = "查 看"

	gridId           = "gvElecInfo"
	pageNextArgument = "Page$Next"
	nextPageMarker   = "下一页"

	contentFrameName   = "stuMainFrame"
	navigationFragment = "stuTop.htm"
	reportEndpoint     = "HouseElec.aspx"
	setupEndpoint      = "HouseInfo.aspx"

	// DefaultUsageColumn is the index of the daily usage cell in a grid row.
	DefaultUsageColumn = 3
	// DefaultMaxPagesPerMonth bounds the paging loop of a single month, a month has at
	// most 31 rows so a real server never comes close.
	DefaultMaxPagesPerMonth = 64

	minGridCells = 5
)

var setupMarkers = []string{"系统设置", "初次登录"}

// PinnedFields are the values posted for the earlier cascade levels once the wizard has
// moved past them. The deployment this was built against expects fixed values there
// instead of the ones resolved earlier in the run. An empty field posts the value that
// was resolved for that level instead.
//
// TODO: confirm against the live server whether resolved values are accepted for every
// community, then drop the pins.
type PinnedFields struct {
	Campus    string `json:"campus" yaml:"campus"`
	Community string `json:"community" yaml:"community"`
	Building  string `json:"building" yaml:"building"`
}

// DefaultPinnedFields returns the pins the production deployment was observed to accept.
// The community value carries the server's own right padding.
func DefaultPinnedFields() PinnedFields {
	return PinnedFields{
		Campus:    "校本部",
		Community: "D区" + strings.Repeat(" ", 47),
		Building:  "1",
	}
}

func pick(pinned, resolved string) string {
	if pinned != "" {
		return pinned
	}
	return resolved
}
