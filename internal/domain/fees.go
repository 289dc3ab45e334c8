package domain

// DefaultFeeRate es la tasa de la curva de fees de Polymarket para mercados crypto.
const DefaultFeeRate = 0.0625

// FeePerShare calcula el fee por share: price × (1 − price) × feeRate.
// Es una parábola con máximo en 0.5 y cero en los extremos (0 y 1).
func FeePerShare(price, feeRate float64) float64 {
	return price * (1 - price) * feeRate
}

// OrderFee devuelve el fee total de una orden de quantity shares.
func OrderFee(price, quantity, feeRate float64) float64 {
	return FeePerShare(price, feeRate) * quantity
}

// BuyCost es el USDC que sale del balance al comprar: notional + fee.
func BuyCost(price, quantity, feeRate float64) float64 {
	return price*quantity + OrderFee(price, quantity, feeRate)
}

// SellProceeds es el USDC que entra al vender: notional − fee.
func SellProceeds(price, quantity, feeRate float64) float64 {
	return price*quantity - OrderFee(price, quantity, feeRate)
}
