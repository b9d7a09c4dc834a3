package parse

import (
	"strings"

	"hiroba-client/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// CardList parses login_select.php. Entries missing any field are dropped.
func CardList(page []byte) []Card {
	doc := load(page)

	cards := []Card{}
	doc.Find(".cardSelect").Each(func(_ int, el *goquery.Selection) {
		taikoNumber := strings.TrimSpace(strings.Replace(
			htmlutil.TrimmedText(el.Find("div#mydon_area > div:nth-child(2) > p")),
			"太鼓番: ", "", 1,
		))
		nickname := htmlutil.Text(el.Find("div#mydon_area > div:nth-child(3)"))
		myDon := htmlutil.Attr(el.Find("img"), "src")

		if taikoNumber == "" || nickname == "" || myDon == "" {
			return
		}
		cards = append(cards, Card{
			TaikoNumber: taikoNumber,
			Nickname:    nickname,
			MyDon:       myDon,
		})
	})
	return cards
}

// CurrentLogin parses the card shown in the portal header, nil when no card is
// logged in.
func CurrentLogin(page []byte) *Card {
	doc := load(page)

	area := doc.Find("div#mydon_area").First()
	if area.Length() == 0 {
		return nil
	}
	userDivs := area.ChildrenFiltered("div")

	nickname := htmlutil.Text(htmlutil.Nth(userDivs, 1))

	userDiv := htmlutil.Nth(userDivs, 2)
	detailPs := userDiv.Find("div.detail").First().Find("p")
	taikoNumber := strings.TrimSpace(strings.Replace(
		htmlutil.GetTextOf(htmlutil.Nth(detailPs, 1)),
		"太鼓番：", "", 1,
	))
	myDon := htmlutil.Attr(userDiv.Find("div.mydon_image img"), "src")

	if nickname == "" || taikoNumber == "" || myDon == "" {
		return nil
	}
	return &Card{
		TaikoNumber: taikoNumber,
		Nickname:    nickname,
		MyDon:       myDon,
	}
}

// Ticket is the value of the #_tckt input, "" when the page has none.
func Ticket(page []byte) string {
	doc := load(page)
	return htmlutil.Attr(doc.Find("#_tckt"), "value")
}
