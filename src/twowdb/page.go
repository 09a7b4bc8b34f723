package twowdb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ogri-la/twowdb-fetch-go/src/listing"
)

// ItemPage holds the parts of an item page the rest of the record is built from.
type ItemPage struct {
	ID int
	// Title is the item name taken from the page title, "" if there wasn't one.
	Title string
	// TooltipText is the text of the tooltip block, one text node per line.
	TooltipText string
	// QualityToken is the first style class of the item name, e.g. "q4".
	QualityToken string
	Icon         string
}

// ParseItemPage extracts the title, tooltip and icon from the HTML of an item page.
// A page without a tooltip is not an error, its TooltipText is empty.
func ParseItemPage(itemID int, page string) (ItemPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ItemPage{}, fmt.Errorf("failed to parse item page: %w", err)
	}

	result := ItemPage{
		ID:    itemID,
		Title: titleName(doc),
		Icon:  findIcon(itemID, page),
	}

	tooltip := doc.Find("div.tooltip").First()
	if tooltip.Length() > 0 {
		result.TooltipText = nodeText(tooltip.Nodes[0])
		if class, ok := tooltip.Find("b").First().Attr("class"); ok {
			if classes := strings.Fields(class); len(classes) > 0 {
				result.QualityToken = classes[0]
			}
		}
	}

	return result, nil
}

// ParseTitle returns the cleaned item name from the <title> of an item page.
func ParseTitle(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse item page: %w", err)
	}
	return titleName(doc), nil
}

// titleName is the part of "Thunderfury - Item - Turtle WoW" before the first " - ".
func titleName(doc *goquery.Document) string {
	title := doc.Find("title").First().Text()
	name, _, _ := strings.Cut(title, " - ")
	return listing.CleanName(strings.TrimSpace(name))
}

func findIcon(itemID int, page string) string {
	iconRegex := regexp.MustCompile(`_\[` + fmt.Sprint(itemID) + `\]=\{icon:\s*'([^']+)'\}`)
	if matches := iconRegex.FindStringSubmatch(page); matches != nil {
		return matches[1]
	}
	return DefaultIcon
}

// nodeText joins the text nodes beneath n with newlines, skipping scripts and styles.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			parts = append(parts, n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
