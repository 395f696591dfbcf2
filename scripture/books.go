package scripture

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Book describes one canonical book and the spellings that resolve to it.
type Book struct {
	Name    string
	Aliases []string
}

// books is the fixed canon: King James books plus the LDS standard works the
// memorization program draws from. Aliases cover the common abbreviations;
// lookup is case- and punctuation-insensitive, so "2 ne." and "2 NE" both
// resolve to "2 Nephi".
var books = []Book{
	// Old Testament
	{"Genesis", []string{"Gen"}},
	{"Exodus", []string{"Ex", "Exod"}},
	{"Leviticus", []string{"Lev"}},
	{"Numbers", []string{"Num"}},
	{"Deuteronomy", []string{"Deut", "Dt"}},
	{"Joshua", []string{"Josh"}},
	{"Judges", []string{"Judg"}},
	{"Ruth", nil},
	{"1 Samuel", []string{"1 Sam"}},
	{"2 Samuel", []string{"2 Sam"}},
	{"1 Kings", []string{"1 Kgs"}},
	{"2 Kings", []string{"2 Kgs"}},
	{"1 Chronicles", []string{"1 Chr", "1 Chron"}},
	{"2 Chronicles", []string{"2 Chr", "2 Chron"}},
	{"Ezra", nil},
	{"Nehemiah", []string{"Neh"}},
	{"Esther", []string{"Esth"}},
	{"Job", nil},
	{"Psalms", []string{"Ps", "Psalm", "Pss"}},
	{"Proverbs", []string{"Prov"}},
	{"Ecclesiastes", []string{"Eccl"}},
	{"Song of Solomon", []string{"Song"}},
	{"Isaiah", []string{"Isa"}},
	{"Jeremiah", []string{"Jer"}},
	{"Lamentations", []string{"Lam"}},
	{"Ezekiel", []string{"Ezek"}},
	{"Daniel", []string{"Dan"}},
	{"Hosea", []string{"Hos"}},
	{"Joel", nil},
	{"Amos", nil},
	{"Obadiah", []string{"Obad"}},
	{"Jonah", nil},
	{"Micah", []string{"Mic"}},
	{"Nahum", []string{"Nah"}},
	{"Habakkuk", []string{"Hab"}},
	{"Zephaniah", []string{"Zeph"}},
	{"Haggai", []string{"Hag"}},
	{"Zechariah", []string{"Zech"}},
	{"Malachi", []string{"Mal"}},
	// New Testament
	{"Matthew", []string{"Matt", "Mt"}},
	{"Mark", []string{"Mk"}},
	{"Luke", []string{"Lk"}},
	{"John", []string{"Jn"}},
	{"Acts", nil},
	{"Romans", []string{"Rom"}},
	{"1 Corinthians", []string{"1 Cor"}},
	{"2 Corinthians", []string{"2 Cor"}},
	{"Galatians", []string{"Gal"}},
	{"Ephesians", []string{"Eph"}},
	{"Philippians", []string{"Philip", "Phil"}},
	{"Colossians", []string{"Col"}},
	{"1 Thessalonians", []string{"1 Thes", "1 Thess"}},
	{"2 Thessalonians", []string{"2 Thes", "2 Thess"}},
	{"1 Timothy", []string{"1 Tim"}},
	{"2 Timothy", []string{"2 Tim"}},
	{"Titus", nil},
	{"Philemon", []string{"Philem"}},
	{"Hebrews", []string{"Heb"}},
	{"James", []string{"Jas"}},
	{"1 Peter", []string{"1 Pet"}},
	{"2 Peter", []string{"2 Pet"}},
	{"1 John", []string{"1 Jn"}},
	{"2 John", []string{"2 Jn"}},
	{"3 John", []string{"3 Jn"}},
	{"Jude", nil},
	{"Revelation", []string{"Rev"}},
	// Book of Mormon
	{"1 Nephi", []string{"1 Ne"}},
	{"2 Nephi", []string{"2 Ne"}},
	{"Jacob", nil},
	{"Enos", nil},
	{"Jarom", nil},
	{"Omni", nil},
	{"Words of Mormon", []string{"W of M", "WofM"}},
	{"Mosiah", nil},
	{"Alma", nil},
	{"Helaman", []string{"Hel"}},
	{"3 Nephi", []string{"3 Ne"}},
	{"4 Nephi", []string{"4 Ne"}},
	{"Mormon", []string{"Morm"}},
	{"Ether", nil},
	{"Moroni", []string{"Moro"}},
	// Doctrine and Covenants, Pearl of Great Price
	{"Doctrine and Covenants", []string{"D and C", "DC", "Doctrine Covenants"}},
	{"Moses", nil},
	{"Abraham", []string{"Abr"}},
	{"Articles of Faith", []string{"A of F", "AofF"}},
}

var bookIndex map[string]string

var foldCaser = cases.Fold()

// normalizeBookKey reduces a book spelling to its lookup key: case-folded,
// punctuation stripped, whitespace collapsed to single spaces.
func normalizeBookKey(name string) string {
	folded := foldCaser.String(name)
	var b strings.Builder
	for _, r := range folded {
		switch {
		case r == '.' || r == ',' || r == '\'':
			// drop punctuation
		case r == '-' || r == '–' || r == '—':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// init builds the alias index and validates the table. A duplicate alias is a
// programmer error in the canon table, so it fails loudly at load time rather
// than resolving ambiguously at parse time.
func init() {
	bookIndex = make(map[string]string, len(books)*2)
	add := func(spelling, canonical string) {
		key := normalizeBookKey(spelling)
		if existing, ok := bookIndex[key]; ok && existing != canonical {
			panic(fmt.Sprintf("scripture: alias %q maps to both %q and %q", spelling, existing, canonical))
		}
		bookIndex[key] = canonical
	}
	for _, b := range books {
		add(b.Name, b.Name)
		for _, a := range b.Aliases {
			add(a, b.Name)
		}
	}
}

// CanonicalBook resolves a book spelling to its canonical name.
func CanonicalBook(name string) (string, bool) {
	canonical, ok := bookIndex[normalizeBookKey(name)]
	return canonical, ok
}
