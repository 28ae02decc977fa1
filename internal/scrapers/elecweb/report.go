package elecweb

import (
	"context"
	"fmt"

	"elecharvest/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Report is the usage report landing page together with what was seen on the way.
type Report struct {
	landing *response
	// Link is the href the landing page was reached with.
	Link string
	// Overview holds the rows of every table in the content frame (room and balance
	// details) or of the flat page.
	Overview [][]string
}

// tableRows flattens the `td` rows of every table in `doc`, rows without cells are
// dropped.
func tableRows(doc *goquery.Document) [][]string {
	var rows [][]string
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return
		}
		rows = append(rows, htmlutil.RowTexts(cells))
	})
	return rows
}

// findReportLink prefers an anchor whose href is exactly the report endpoint, then falls
// back to the second anchor of the first table.
func findReportLink(doc *goquery.Document) (string, bool) {
	var link string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if a.AttrOr("href", "") == reportEndpoint {
			link = reportEndpoint
			return false
		}
		return true
	})
	if link != "" {
		return link, true
	}

	anchors := htmlutil.GetAnchors(nil, doc.Find("table").First().Find("a"))
	if len(anchors) >= 2 {
		return anchors[1].Href, true
	}
	return "", false
}

// ResolveReport goes from the stage after submission to the report landing page.
func (h *Harvester) ResolveReport(ctx context.Context, stage *Stage) (*Report, error) {
	ctx, span := tracer.Start(ctx, "ResolveReport")
	defer span.End()

	report := &Report{}
	var navigation *response

	switch stage.res.kind {
	case PAGE_FRAMED_REPORT:
		src, ok := stage.res.doc.Find("frame").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.AttrOr("name", "") == contentFrameName
		}).First().Attr("src")
		if !ok {
			h.tel.ReportBroken(report_client_resolve_report, "content frame missing")
			return nil, stepError("resolve-report", contentFrameName, ErrNavigationLinkNotFound)
		}
		content, err := h.get(ctx, src)
		if err != nil {
			h.tel.ReportBroken(report_client_resolve_report, contentFrameName, err)
			return nil, stepError("resolve-report", contentFrameName, err)
		}
		report.Overview = tableRows(content.doc)

		navigation, err = h.get(ctx, navigationFragment)
		if err != nil {
			h.tel.ReportBroken(report_client_resolve_report, navigationFragment, err)
			return nil, stepError("resolve-report", navigationFragment, err)
		}
	case PAGE_FLAT_REPORT:
		report.Overview = tableRows(stage.res.doc)
		navigation = stage.res
	case PAGE_SETUP_REQUIRED:
		return nil, stepError("resolve-report", "", ErrSetupRequired)
	default:
		return nil, stepError("resolve-report", "", ErrUnrecognizedPage)
	}

	link, ok := findReportLink(navigation.doc)
	if !ok {
		h.tel.ReportBroken(report_client_resolve_report, ErrNavigationLinkNotFound, stage.res.kind.String())
		return nil, stepError("resolve-report", reportEndpoint, ErrNavigationLinkNotFound)
	}
	h.tel.ReportDebug(report_client_resolve_report, "link", link)

	// relative links in the fragment are relative to the fragment itself
	target := link
	if navigation.page.Url != nil {
		ref, err := navigation.page.Url.Parse(link)
		if err == nil {
			target = ref.String()
		}
	}
	landing, err := h.get(ctx, target)
	if err != nil {
		h.tel.ReportBroken(report_client_resolve_report, "landing", err)
		return nil, stepError("resolve-report", link, fmt.Errorf("landing: %w", err))
	}

	report.Link = link
	report.landing = landing
	return report, nil
}
