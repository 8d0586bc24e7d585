package models

// Column names of the standardized sales sheet.
const (
	ColCustomerID    = "id_cliente"
	ColCustomerName  = "nome_cliente"
	ColBirthDate     = "data_nascimento"
	ColTaxID         = "cpf"
	ColPhone         = "telefone"
	ColProductCode   = "codigo_produto"
	ColProductName   = "nome_produto"
	ColQuantity      = "quantidade"
	ColUnitAmount    = "valor_produto"
	ColSaleDate      = "data_venda"
	ColPurchaseDate  = "data_compra"
	ColPaymentMethod = "forma_pagamento"
	ColStoreID       = "codigo_loja"
	ColStoreName     = "nome_loja"
	ColSellerID      = "codigo_vendedor"
	ColSellerName    = "nome_vendedor"
)
