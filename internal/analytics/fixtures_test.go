package analytics

import "time"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleRows() []Row {
	return []Row{
		{Date: date(2024, 1, 1), OrderID: "10001", Region: "North America", Category: "Electronics",
			ProductName: "iPhone 14 Pro", PaymentMethod: "Credit Card", UnitsSold: 2, UnitPrice: 999.99, Revenue: Float64(1999.98)},
		{Date: date(2024, 1, 2), OrderID: "10002", Region: "Europe", Category: "Home Appliances",
			ProductName: "Dyson V11 Vacuum", PaymentMethod: "PayPal", UnitsSold: 1, UnitPrice: 499.99, Revenue: Float64(499.99)},
		{Date: date(2024, 1, 3), OrderID: "10003", Region: "Asia", Category: "Clothing",
			ProductName: "Levi's 501 Jeans", PaymentMethod: "Debit Card", UnitsSold: 3, UnitPrice: 69.99, Revenue: Float64(209.97)},
		{Date: date(2024, 1, 4), OrderID: "10004", Region: "North America", Category: "electronics",
			ProductName: "USB-C Cable", PaymentMethod: "Credit Card", UnitsSold: 4, UnitPrice: 19.99, Revenue: Float64(79.96)},
		{Date: date(2024, 1, 5), OrderID: "10005", Region: "Europe", Category: "Electronics",
			ProductName: "Sony WH-1000XM5", PaymentMethod: "PayPal", UnitsSold: 1, UnitPrice: 399.99, Revenue: Float64(399.99)},
		{OrderID: "10006", Region: "Asia", Category: "Clothing",
			ProductName: "Nike Air Force 1", PaymentMethod: "Debit Card", UnitsSold: 2, UnitPrice: 90},
	}
}
