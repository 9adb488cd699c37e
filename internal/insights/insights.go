// Package insights holds the fixed commentary shown next to each chart.
package insights

import "strings"

// Supported locales.
const (
	LangEnglish    = "en"
	LangIndonesian = "id"
	DefaultLang    = LangEnglish
)

// View names a dashboard section with commentary.
type View string

const (
	ViewIntro       View = "intro"
	ViewHourly      View = "hourly"
	ViewWeather     View = "weather"
	ViewWorkingDay  View = "workingday"
	ViewSeasonal    View = "seasonal"
	ViewDayType     View = "daytype"
	ViewWeatherYear View = "weather-year"
	ViewClusters    View = "clusters"
)

// Commentary is the heading and bullet points of one view.
type Commentary struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

var catalog = map[string]map[View]Commentary{
	LangEnglish: {
		ViewIntro: {
			Title: "Bike Sharing Analysis",
			Points: []string{
				"Explore rentals by time, weather and season.",
				"Use the filters in the sidebar to adjust every chart to your needs.",
			},
		},
		ViewHourly: {
			Title: "Hourly Rental Pattern",
			Points: []string{
				"This chart shows the average number of rentals for each hour of the day.",
				"Rentals rise in the morning (around 7 to 9) and again in the late afternoon (around 17 to 19), when many people ride to and from work or school.",
				"After 21:00 rentals drop sharply as activity winds down.",
				"Use this pattern to make sure enough bikes are available during peak hours.",
			},
		},
		ViewWeather: {
			Title: "Weather Impact on Rentals",
			Points: []string{
				"This chart shows how weather conditions relate to rentals.",
				"Warm temperatures tend to increase rentals while cold temperatures reduce them.",
				"High humidity slightly lowers demand, probably because humid conditions are less comfortable for cycling.",
				"Low to moderate wind makes riding more pleasant, so rentals tend to be higher.",
			},
		},
		ViewWorkingDay: {
			Title: "Average Rentals: Working Day vs Weekend/Holiday",
			Points: []string{
				"This chart compares the average daily rentals on working days and on weekends or holidays.",
				"Rentals are higher on working days, which points to bikes being used for commuting.",
				"Weekends and holidays still hold strong potential that special promotions could unlock.",
			},
		},
		ViewSeasonal: {
			Title: "Seasonal Bike Usage by Year",
			Points: []string{
				"Rentals peak in fall and summer and are lowest in spring.",
				"Every season grew from the first year to the second.",
			},
		},
		ViewDayType: {
			Title: "Bike Usage by Day Type",
			Points: []string{
				"Working days account for the larger share of all rentals.",
				"There are more working days than weekend or holiday days, which adds to their share.",
			},
		},
		ViewWeatherYear: {
			Title: "Weather Impact on Bike Usage by Year",
			Points: []string{
				"Clear or cloudy days carry most of the rentals in both years.",
				"Rain and snow cut usage sharply and heavy rain almost stops it.",
			},
		},
		ViewClusters: {
			Title: "Clustering of Casual and Registered Users by Month",
			Points: []string{
				"Each month is placed by its casual and registered totals.",
				"Months below the low thresholds on both axes are Low, months below the medium thresholds are Medium, and the rest are High.",
				"Warm months land in the High group, driven by both casual and registered riders.",
			},
		},
	},
	LangIndonesian: {
		ViewIntro: {
			Title: "Analisis Penyewaan Sepeda",
			Points: []string{
				"Eksplorasi tersedia dengan berbagai parameter seperti waktu, cuaca, dan musim.",
				"Gunakan filter di sidebar untuk menyesuaikan visualisasi sesuai kebutuhan Anda.",
			},
		},
		ViewHourly: {
			Title: "Pola Penyewaan per Jam",
			Points: []string{
				"Grafik ini menunjukkan pola penyewaan sepeda setiap jam dalam sehari.",
				"Penyewaan meningkat pada pagi hari (sekitar jam 7 sampai 9) dan sore hari (sekitar jam 17 sampai 19), saat banyak orang bersepeda ke kantor atau sekolah.",
				"Pada malam hari (setelah jam 21) jumlah penyewaan menurun drastis karena aktivitas masyarakat berkurang.",
				"Manfaatkan informasi ini untuk memastikan jumlah sepeda cukup di jam sibuk.",
			},
		},
		ViewWeather: {
			Title: "Pengaruh Cuaca terhadap Penyewaan",
			Points: []string{
				"Grafik ini menunjukkan pengaruh cuaca terhadap pola penyewaan sepeda.",
				"Suhu hangat cenderung meningkatkan jumlah penyewaan, sementara suhu dingin menurunkannya.",
				"Kelembapan tinggi sedikit mengurangi minat penyewaan karena kondisi lembap kurang nyaman untuk bersepeda.",
				"Kecepatan angin rendah hingga sedang membuat berkendara lebih nyaman sehingga penyewaan cenderung meningkat.",
			},
		},
		ViewWorkingDay: {
			Title: "Rata-rata Penyewaan Berdasarkan Hari Kerja/Libur",
			Points: []string{
				"Grafik ini membandingkan rata-rata penyewaan antara hari kerja dan hari libur.",
				"Penyewaan lebih tinggi pada hari kerja, menandakan sepeda sering digunakan untuk komuter.",
				"Hari libur tetap memiliki potensi besar untuk ditingkatkan melalui promosi khusus.",
			},
		},
		ViewSeasonal: {
			Title: "Penggunaan Sepeda per Musim dan Tahun",
			Points: []string{
				"Penyewaan tertinggi terjadi pada musim gugur dan musim panas, terendah pada musim semi.",
				"Semua musim mengalami kenaikan dari tahun pertama ke tahun kedua.",
			},
		},
		ViewDayType: {
			Title: "Penggunaan Sepeda Berdasarkan Jenis Hari",
			Points: []string{
				"Hari kerja menyumbang porsi terbesar dari seluruh penyewaan.",
				"Jumlah hari kerja lebih banyak daripada hari libur sehingga porsinya ikut membesar.",
			},
		},
		ViewWeatherYear: {
			Title: "Pengaruh Cuaca terhadap Penggunaan Sepeda per Tahun",
			Points: []string{
				"Hari cerah atau berawan mendominasi penyewaan di kedua tahun.",
				"Hujan dan salju menurunkan penggunaan secara tajam.",
			},
		},
		ViewClusters: {
			Title: "Pengelompokan Pengguna Kasual dan Terdaftar per Bulan",
			Points: []string{
				"Setiap bulan ditempatkan berdasarkan total pengguna kasual dan terdaftar.",
				"Bulan di bawah ambang rendah pada kedua sumbu termasuk Low, di bawah ambang menengah termasuk Medium, sisanya High.",
				"Bulan-bulan hangat masuk kelompok High.",
			},
		},
	},
}

// Locales lists the supported locales.
func Locales() []string {
	return []string{LangEnglish, LangIndonesian}
}

// Normalize maps a locale tag such as "id-ID" to a supported locale,
// falling back to DefaultLang.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	if _, ok := catalog[lang]; ok {
		return lang
	}
	return DefaultLang
}

// For returns the commentary of a view. The second result is false for an
// unknown view.
func For(view View, lang string) (Commentary, bool) {
	c, ok := catalog[Normalize(lang)][view]
	if !ok {
		return Commentary{}, false
	}
	c.Points = append([]string(nil), c.Points...)
	return c, true
}
