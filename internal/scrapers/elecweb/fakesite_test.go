package elecweb

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/mazen160/go-random"
)

const (
	fakePrefix     = "/http/77726476706e/"
	fakeCookieName = "wengine_vpn_ticketwebvpn_ujs_edu_cn"
	fakeCookie     = "ticket-1234"
	fakePassword   = "123456"
)

type fakeOption struct {
	label string
	value string
}

var (
	fakeCampuses = []fakeOption{
		{label: "校本部", value: "校本部"},
		{label: "北固校区", value: "北固校区"},
	}
	fakeCommunities = []fakeOption{
		{label: "D区", value: "D区" + strings.Repeat(" ", 47)},
		{label: "E区", value: "E区" + strings.Repeat(" ", 47)},
	}
	fakeBuildings = []fakeOption{
		{label: "1", value: "1"},
		{label: "2", value: "2"},
	}
	fakeRooms = []fakeOption{
		{label: "101", value: "D1-0101"},
		{label: "102", value: "D1-0102"},
	}
)

// fakeWizard imitates the metering site closely enough for the harvester: it issues a
// fresh token pair with every form and rejects anything but the latest pair.
type fakeWizard struct {
	t     testing.TB
	mutex sync.Mutex

	viewState       string
	eventValidation string
	issued          int

	// setupPrompts is the number of submissions answered with the first-use page.
	setupPrompts int
	// flat answers the submission with a page that links to the report directly.
	flat bool
	// navHref overrides the href of the usage link in the navigation fragment.
	navHref string
	// endlessPaging makes every grid page link to a next one.
	endlessPaging bool
	// failMonth answers the selection of that month with a server error.
	failMonth string
	// months maps "YYYY-MM" to the rows of each grid page.
	months map[string][][][]string

	selectedMonth string
	page          int

	posts    []url.Values
	requests []string
}

func newFakeWizard(t testing.TB) *fakeWizard {
	return &fakeWizard{
		t: t,
		months: map[string][][][]string{
			"2025-11": {
				{
					{"2025-11-01", "100.00", "103.50", "3.5", ""},
					{"2025-11-02", "103.50", "107.50", "4.0", ""},
				},
				{
					{"2025-11-03", "107.50", "107.50", " ", "停电"},
					{"2025-11-04", "107.50", "110.00", "2.5", ""},
				},
			},
			"2025-12": {
				{
					{"2025-12-01", "110.00", "115.00", "5.0", ""},
				},
			},
		},
	}
}

func (f *fakeWizard) start() *httptest.Server {
	server := httptest.NewServer(f)
	f.t.Cleanup(server.Close)
	return server
}

func (f *fakeWizard) baseUrl(server *httptest.Server) string {
	return server.URL + fakePrefix
}

func (f *fakeWizard) issue() string {
	f.issued++
	suffix, err := random.String(12)
	if err != nil {
		f.t.Fatal(err)
	}
	f.viewState = fmt.Sprintf("/wEPDwUK%d%s==", f.issued, suffix)
	f.eventValidation = fmt.Sprintf("/wEWBQK%d%s", f.issued, suffix)
	return fmt.Sprintf(
		`<input type="hidden" name="__VIEWSTATE" id="__VIEWSTATE" value="%s" />`+
			`<input type="hidden" name="__EVENTVALIDATION" id="__EVENTVALIDATION" value="%s" />`,
		html.EscapeString(f.viewState),
		html.EscapeString(f.eventValidation),
	)
}

func renderSelect(name string, options []fakeOption) string {
	out := strings.Builder{}
	fmt.Fprintf(&out, `<select name="%s" onchange="javascript:setTimeout('__doPostBack(\'%s\',\'\')', 0)" id="%s">`, name, name, name)
	for _, opt := range options {
		fmt.Fprintf(&out, `<option value="%s">%s</option>`, html.EscapeString(opt.value), html.EscapeString(opt.label))
	}
	out.WriteString("</select>")
	return out.String()
}

func (f *fakeWizard) wizardPage(levels int) string {
	body := strings.Builder{}
	body.WriteString(`<html><head><title>宿舍用电查询</title></head><body><form method="post" action="./" id="form1">`)
	body.WriteString(f.issue())
	selects := []struct {
		name    string
		options []fakeOption
	}{
		{controlCampus, fakeCampuses},
		{controlCommunity, fakeCommunities},
		{controlBuilding, fakeBuildings},
		{controlRoom, fakeRooms},
	}
	for i := 0; i < levels && i < len(selects); i++ {
		body.WriteString(renderSelect(selects[i].name, selects[i].options))
	}
	body.WriteString(`<input name="txtStuPwd" type="password" id="txtStuPwd" />`)
	body.WriteString(`<input type="image" name="btnEnter" id="btnEnter" src="images/enter.gif" />`)
	body.WriteString(`</form></body></html>`)
	return body.String()
}

// rejectedPage is the wizard as re-rendered after a wrong password: laid out in a
// table, with footer links and an alert.
func (f *fakeWizard) rejectedPage() string {
	wizard := f.wizardPage(4)
	start := strings.Index(wizard, "<form")
	end := strings.Index(wizard, "</form>") + len("</form>")
	return `<html><body><table><tr><td>` + wizard[start:end] + `</td></tr>` +
		`<tr><td><a href="index.htm">首页</a> <a href="help.htm">帮助</a></td></tr></table>` +
		`<script>alert('密码错误');</script></body></html>`
}

func (f *fakeWizard) setupPage() string {
	return `<html><body><form method="post" action="./" id="form1">` + f.issue() +
		renderSelect(controlRoom, fakeRooms) +
		`<script>alert('初次登录，请先进行系统设置');</script></form></body></html>`
}

const fakeFrameset = `<html><head><title>宿舍用电</title></head>
<frameset rows="80,*" frameborder="no">
	<frame name="stuTopFrame" src="stuTop.htm" scrolling="no" />
	<frame name="stuMainFrame" src="stuMain.aspx" />
</frameset></html>`

const fakeMain = `<html><body>
<table id="tbInfo">
	<tr><td>房间</td><td>D1-0101</td></tr>
	<tr><td>剩余电量</td><td>35.20</td></tr>
</table>
</body></html>`

func (f *fakeWizard) navigation() string {
	href := f.navHref
	if href == "" {
		href = reportEndpoint
	}
	return fmt.Sprintf(`<html><body><table><tr>
	<td><a href="stuMain.aspx" target="stuMainFrame">房间信息</a></td>
	<td><a href="%s" target="stuMainFrame">用电信息</a></td>
	<td><a href="Logout.aspx" target="_top">退出</a></td>
</tr></table></body></html>`, href)
}

func (f *fakeWizard) flatPage() string {
	return `<html><body><table>
	<tr><td>房间</td><td>D1-0101</td></tr>
	<tr><td><a href="stuMain.aspx">房间信息</a></td><td><a href="HouseElec.aspx">用电信息</a></td></tr>
</table></body></html>`
}

func (f *fakeWizard) reportPage() string {
	body := strings.Builder{}
	body.WriteString(`<html><body><form method="post" action="HouseElec.aspx" id="form1">`)
	body.WriteString(f.issue())
	body.WriteString(`<select name="ddlYear"><option value="2025">2025</option><option value="2026">2026</option></select>`)
	body.WriteString(`<select name="ddlMonth">`)
	for m := 1; m <= 12; m++ {
		fmt.Fprintf(&body, `<option value="%02d">%d</option>`, m, m)
	}
	body.WriteString(`</select><input type="submit" name="btnSelect" value="查 看" />`)

	if f.selectedMonth != "" {
		pages := f.months[f.selectedMonth]
		var rows [][]string
		if f.page < len(pages) {
			rows = pages[f.page]
		}
		hasNext := f.endlessPaging || f.page+1 < len(pages)

		if len(pages) > 0 || f.endlessPaging {
			body.WriteString(`<table id="gvElecInfo" cellspacing="0" border="1">`)
			body.WriteString(`<tr><th>日期</th><th>起始读数</th><th>结束读数</th><th>用电量</th><th>备注</th></tr>`)
			for _, row := range rows {
				body.WriteString("<tr>")
				for _, cell := range row {
					if strings.TrimSpace(cell) == "" {
						body.WriteString("<td>&nbsp;</td>")
						continue
					}
					fmt.Fprintf(&body, "<td>%s</td>", html.EscapeString(cell))
				}
				body.WriteString("</tr>")
			}
			if hasNext {
				fmt.Fprintf(&body, `<tr><td colspan="5"><table border="0"><tr><td><span>%d</span></td>`+
					`<td><a href="javascript:__doPostBack('gvElecInfo','Page$Next')">下一页</a></td>`+
					`<td><a href="javascript:__doPostBack('gvElecInfo','Page$Last')">尾页</a></td></tr></table></td></tr>`,
					f.page+1,
				)
			}
			body.WriteString(`</table>`)
		}
	}

	body.WriteString(`</form></body></html>`)
	return body.String()
}

func (f *fakeWizard) write(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write([]byte(body))
	if err != nil {
		f.t.Error(err)
	}
}

func (f *fakeWizard) checkTokens(form url.Values) bool {
	return form.Get(fieldViewState) == f.viewState &&
		form.Get(fieldEventValidation) == f.eventValidation
}

func optionValue(options []fakeOption, label string) string {
	for _, opt := range options {
		if opt.label == label {
			return opt.value
		}
	}
	return ""
}

func (f *fakeWizard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	cookie, err := r.Cookie(fakeCookieName)
	if err != nil || cookie.Value != fakeCookie {
		f.write(w, http.StatusForbidden, "<html><body>webvpn: please login</body></html>")
		return
	}
	if !strings.HasPrefix(r.URL.Path, fakePrefix) {
		f.write(w, http.StatusNotFound, "not found")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, fakePrefix)

	if r.Method == http.MethodPost {
		err := r.ParseForm()
		if err != nil {
			f.write(w, http.StatusBadRequest, err.Error())
			return
		}
		f.posts = append(f.posts, r.PostForm)
		if !f.checkTokens(r.PostForm) {
			f.write(w, http.StatusInternalServerError, "<html><body>Validation of viewstate MAC failed.</body></html>")
			return
		}
	}

	switch {
	case path == "" && r.Method == http.MethodGet:
		f.write(w, http.StatusOK, f.wizardPage(1))
	case path == "" && r.Method == http.MethodPost:
		f.serveWizardPost(w, r.PostForm)
	case path == "stuMain.aspx":
		f.write(w, http.StatusOK, fakeMain)
	case path == navigationFragment:
		f.write(w, http.StatusOK, f.navigation())
	case path == reportEndpoint && r.Method == http.MethodGet:
		f.selectedMonth = ""
		f.page = 0
		f.write(w, http.StatusOK, f.reportPage())
	case path == reportEndpoint && r.Method == http.MethodPost:
		f.serveReportPost(w, r.PostForm)
	default:
		f.write(w, http.StatusNotFound, "not found")
	}
}

func (f *fakeWizard) serveWizardPost(w http.ResponseWriter, form url.Values) {
	switch form.Get(fieldEventTarget) {
	case controlCampus:
		if form.Get(controlCampus) != optionValue(fakeCampuses, "校本部") {
			f.write(w, http.StatusOK, f.wizardPage(1))
			return
		}
		f.write(w, http.StatusOK, f.wizardPage(2))
	case controlCommunity:
		f.write(w, http.StatusOK, f.wizardPage(3))
	case controlBuilding:
		f.write(w, http.StatusOK, f.wizardPage(4))
	case "":
		if form.Get(fieldEnterX) != "1" || form.Get(fieldEnterY) != "1" {
			f.write(w, http.StatusOK, f.wizardPage(4))
			return
		}
		if form.Get(fieldPassword) != fakePassword {
			f.write(w, http.StatusOK, f.rejectedPage())
			return
		}
		if f.setupPrompts > 0 {
			f.setupPrompts--
			f.write(w, http.StatusOK, f.setupPage())
			return
		}
		if f.flat {
			f.write(w, http.StatusOK, f.flatPage())
			return
		}
		f.write(w, http.StatusOK, fakeFrameset)
	default:
		f.write(w, http.StatusBadRequest, "unknown event target")
	}
}

func (f *fakeWizard) serveReportPost(w http.ResponseWriter, form url.Values) {
	month := form.Get(fieldYear) + "-" + form.Get(fieldMonth)

	switch {
	case form.Get(fieldSelect) == selectButtonText:
		if month == f.failMonth {
			f.write(w, http.StatusInternalServerError, "<html><body>server error</body></html>")
			return
		}
		f.selectedMonth = month
		f.page = 0
	case form.Get(fieldEventTarget) == gridId && form.Get(fieldEventArgument) == pageNextArgument:
		if month != f.selectedMonth {
			f.write(w, http.StatusBadRequest, "month changed while paging")
			return
		}
		f.page++
	default:
		f.write(w, http.StatusBadRequest, "unknown report postback")
		return
	}
	f.write(w, http.StatusOK, f.reportPage())
}
